package main

import (
	"context"
	"net/http"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	accountsrepo "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/gcp"
)

// authStack bundles token verification with the identity provider that backs it.
type authStack struct {
	jwt        func(http.Handler) http.Handler
	identities platformauth.IdentityProvider
	app        *firebase.App
}

// buildAuth constructs the JWT middleware and identity provider for the configured provider.
// The dev provider accepts unsigned tokens and keeps principals in memory.
func buildAuth(ctx context.Context, cfg config, logger *zap.Logger) authStack {
	switch cfg.AuthProvider {
	case "firebase":
		app, fbAuth, err := gcp.InitFirebaseAuth(ctx)
		if err != nil {
			logger.Fatal("init firebase auth", zap.Error(err))
		}
		return authStack{
			jwt:        platformauth.JWT(platformauth.FirebaseTokenVerifier(fbAuth), platformauth.DefaultPrincipalExtractor),
			identities: platformauth.NewFirebaseIdentityProvider(fbAuth),
			app:        app,
		}
	case "dev":
		logger.Warn("using dev auth middleware; do not use in production")
		return authStack{
			jwt:        platformauth.JWT(platformauth.UnsignedTokenVerifier(), platformauth.DefaultPrincipalExtractor),
			identities: platformauth.NewMemoryIdentityProvider(),
		}
	default:
		logger.Fatal("unsupported auth provider", zap.String("provider", cfg.AuthProvider))
	}
	return authStack{}
}

// buildProfileRepository picks where role-tagged profiles live. Firestore needs the
// firebase app, so it is only available with AUTH_PROVIDER=firebase.
func buildProfileRepository(ctx context.Context, cfg config, auth authStack, pg accountsrepo.Repository, logger *zap.Logger) (accountsrepo.Repository, func()) {
	switch cfg.ProfileBackend {
	case "postgres":
		return pg, func() {}
	case "firestore":
		if auth.app == nil {
			logger.Fatal("PROFILE_BACKEND=firestore requires AUTH_PROVIDER=firebase")
		}
		client, err := gcp.InitFirestore(ctx, auth.app)
		if err != nil {
			logger.Fatal("init firestore", zap.Error(err))
		}
		return accountsrepo.NewFirestoreRepository(client), func() { closeFirestore(client, logger) }
	default:
		logger.Fatal("invalid PROFILE_BACKEND (use postgres or firestore)", zap.String("backend", cfg.ProfileBackend))
	}
	return nil, func() {}
}

func closeFirestore(client *firestore.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("close firestore", zap.Error(err))
	}
}
