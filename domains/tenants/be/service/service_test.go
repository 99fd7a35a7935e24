package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/storage"
)

// inMemoryRepo is a minimal in-memory impl of Repository for tests.
type inMemoryRepo struct {
	mu   sync.Mutex
	data map[string]Tenant
}

func newInMemoryRepo() *inMemoryRepo {
	return &inMemoryRepo{data: make(map[string]Tenant)}
}

func (r *inMemoryRepo) Create(_ context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.ID]; ok {
		return Tenant{}, ErrConflict
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *inMemoryRepo) Get(_ context.Context, id string) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *inMemoryRepo) List(_ context.Context, opts ListOptions) (ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]Tenant, 0, len(r.data))
	for _, t := range r.data {
		if opts.Status == nil || t.Status == *opts.Status {
			items = append(items, t)
		}
	}
	return Paginate(items, opts), nil
}

func (r *inMemoryRepo) Update(_ context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.ID]; !ok {
		return Tenant{}, ErrNotFound
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *inMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

type recordingStore struct {
	loc  storage.ObjectLocation
	body []byte
}

func (s *recordingStore) Put(_ context.Context, loc storage.ObjectLocation, _ string, body io.Reader) (string, error) {
	s.loc = loc
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.body = data
	return "mem://" + loc.Bucket + "/" + loc.FullPath, nil
}

func (s *recordingStore) Check(context.Context) error { return nil }

var fixedNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T, store storage.ObjectStore) (*Service, *inMemoryRepo) {
	t.Helper()
	repo := newInMemoryRepo()
	svc := New(repo, store, Config{EnvKey: "dev", Bucket: "assets"}).WithClock(func() time.Time { return fixedNow })
	return svc, repo
}

func TestCreateTrialSetsSevenDayExpiry(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, nil)
	created, err := svc.CreateTrial(context.Background(), CreateInput{
		ID: "owner-1", OwnerID: "owner-1", Name: " Toko Satu ", WhatsAppContact: "+62 812-3456-7890",
	})
	require.NoError(t, err)
	require.Equal(t, StatusTrial, created.Status)
	require.Equal(t, "Toko Satu", created.Name)
	require.Equal(t, "6281234567890", created.WhatsAppContact)
	require.Equal(t, DefaultThemeColor, created.ThemeColor)
	require.NotNil(t, created.ExpiryDate)
	require.Equal(t, fixedNow.AddDate(0, 0, 7), *created.ExpiryDate)
}

func TestCreateTrialValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, nil)
	_, err := svc.CreateTrial(context.Background(), CreateInput{ID: "x", OwnerID: "x", WhatsAppContact: "abc"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "storeName")
	require.Contains(t, verr.Fields, "whatsappContact")
}

func TestAdmissibility(t *testing.T) {
	t.Parallel()

	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Minute)

	cases := []struct {
		name   string
		tenant Tenant
		want   error
	}{
		{name: "active without expiry", tenant: Tenant{Status: StatusActive}},
		{name: "active with past expiry", tenant: Tenant{Status: StatusActive, ExpiryDate: &past}},
		{name: "inactive", tenant: Tenant{Status: StatusInactive}, want: ErrInactive},
		{name: "trial running", tenant: Tenant{Status: StatusTrial, ExpiryDate: &future}},
		{name: "trial expired", tenant: Tenant{Status: StatusTrial, ExpiryDate: &past}, want: ErrTrialExpired},
		{name: "trial missing expiry", tenant: Tenant{Status: StatusTrial}, want: ErrTrialExpired},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.tenant.Admissibility(fixedNow)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestExtendTrialFromLaterOfExpiryAndNow(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t, nil)
	expired := fixedNow.AddDate(0, 0, -3)
	running := fixedNow.AddDate(0, 0, 2)
	repo.data["a"] = Tenant{ID: "a", Status: StatusInactive, ExpiryDate: &expired}
	repo.data["b"] = Tenant{ID: "b", Status: StatusTrial, ExpiryDate: &running}

	a, err := svc.ExtendTrial(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, StatusTrial, a.Status)
	require.Equal(t, fixedNow.AddDate(0, 0, 30), *a.ExpiryDate)

	b, err := svc.ExtendTrial(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, running.AddDate(0, 0, 30), *b.ExpiryDate)
}

func TestSetStatusNotifiesListeners(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t, nil)
	repo.data["a"] = Tenant{ID: "a", Status: StatusActive}

	var changed []string
	svc.OnChange(func(id string) { changed = append(changed, id) })

	updated, err := svc.SetStatus(context.Background(), "a", StatusInactive)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, updated.Status)
	require.Equal(t, []string{"a"}, changed)

	_, err = svc.SetStatus(context.Background(), "a", StatusTrial)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.ResolveTenantSpace(context.Background(), "a")
	require.ErrorIs(t, err, ErrInactive)
}

func TestDiscardOnlyRemovesTrialStores(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t, nil)
	_, err := svc.CreateTrial(context.Background(), CreateInput{ID: "t1", OwnerID: "t1", Name: "Toko"})
	require.NoError(t, err)
	repo.data["live"] = Tenant{ID: "live", Status: StatusActive}

	var changed []string
	svc.OnChange(func(id string) { changed = append(changed, id) })

	require.NoError(t, svc.Discard(context.Background(), "t1"))
	_, err = svc.Get(context.Background(), "t1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, []string{"t1"}, changed)

	require.ErrorIs(t, svc.Discard(context.Background(), "live"), ErrNotTrial)
	require.ErrorIs(t, svc.Discard(context.Background(), "missing"), ErrNotFound)
}

func TestUpdateProfileValidatesThemeColor(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t, nil)
	repo.data["a"] = Tenant{ID: "a", Name: "Old", Status: StatusActive}

	bad := "blue"
	_, err := svc.UpdateProfile(context.Background(), "a", ProfileInput{ThemeColor: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	name := "New"
	color := "#FF8800"
	updated, err := svc.UpdateProfile(context.Background(), "a", ProfileInput{Name: &name, ThemeColor: &color})
	require.NoError(t, err)
	require.Equal(t, "New", updated.Name)
	require.Equal(t, "#ff8800", updated.ThemeColor)
}

func TestUploadLogoStoresUnderTenantPrefix(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	svc, repo := newService(t, store)
	repo.data["a"] = Tenant{ID: "a", Status: StatusActive}

	updated, err := svc.UploadLogo(context.Background(), "a", "image/png", bytes.NewBufferString("png"))
	require.NoError(t, err)
	require.NotNil(t, updated.LogoRef)
	require.Equal(t, "assets", store.loc.Bucket)
	require.Equal(t, "dev/a/logos/logo_1741593600000", store.loc.FullPath)
	require.Equal(t, []byte("png"), store.body)

	_, err = svc.UploadLogo(context.Background(), "a", "text/plain", bytes.NewBufferString("x"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveTenantSpace(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t, nil)
	repo.data["a"] = Tenant{ID: "a", Name: "Toko", Status: StatusActive}

	space, err := svc.ResolveTenantSpace(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "dev/a/", space.BasePrefix)
	require.Equal(t, "active", space.Status)

	require.Nil(t, space.ExpiresAt)

	expiry := fixedNow.Add(48 * time.Hour)
	repo.data["b"] = Tenant{ID: "b", Name: "Trial", Status: StatusTrial, ExpiryDate: &expiry}
	space, err = svc.ResolveTenantSpace(context.Background(), "b")
	require.NoError(t, err)
	require.NotNil(t, space.ExpiresAt)
	require.True(t, expiry.Equal(*space.ExpiresAt))

	_, err = svc.ResolveTenantSpace(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
