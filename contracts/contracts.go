// Package contracts embeds the OpenAPI documents served by the API.
package contracts

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed *.yaml
var files embed.FS

// Names lists the documents that describe routes, sorted.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if name == "common" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load parses and validates one embedded document, resolving refs to sibling files.
func Load(name string) (*openapi3.T, error) {
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("contract %q: %w", name, err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, ref *url.URL) ([]byte, error) {
		if ref == nil || ref.IsAbs() {
			return nil, fmt.Errorf("unsupported reference %v", ref)
		}
		return files.ReadFile(path.Clean(strings.TrimPrefix(ref.Path, "/")))
	}

	doc, err := loader.LoadFromDataWithPath(data, &url.URL{Path: name + ".yaml"})
	if err != nil {
		return nil, fmt.Errorf("load contract %q: %w", name, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate contract %q: %w", name, err)
	}
	if err := checkSecuritySchemes(doc); err != nil {
		return nil, fmt.Errorf("validate contract %q: %w", name, err)
	}
	return doc, nil
}

// checkSecuritySchemes fails when a security requirement names a scheme the document does not
// declare. Request validation looks schemes up in the same document only.
func checkSecuritySchemes(doc *openapi3.T) error {
	declared := func(req openapi3.SecurityRequirements) error {
		for _, alternative := range req {
			for scheme := range alternative {
				if doc.Components == nil || doc.Components.SecuritySchemes[scheme] == nil {
					return fmt.Errorf("security scheme %q is not declared", scheme)
				}
			}
		}
		return nil
	}
	if err := declared(doc.Security); err != nil {
		return err
	}
	for p, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op.Security == nil {
				continue
			}
			if err := declared(*op.Security); err != nil {
				return fmt.Errorf("%s %s: %w", method, p, err)
			}
		}
	}
	return nil
}

// Rebase returns a copy of doc's paths mounted under its first server path, with servers
// cleared, so request paths can be matched without host information.
func Rebase(doc *openapi3.T) *openapi3.T {
	base := ""
	if len(doc.Servers) > 0 {
		if u, err := url.Parse(doc.Servers[0].URL); err == nil {
			base = strings.TrimRight(u.Path, "/")
		}
	}
	out := *doc
	out.Servers = nil
	paths := openapi3.NewPaths()
	for p, item := range doc.Paths.Map() {
		paths.Set(base+p, item)
	}
	out.Paths = paths
	return &out
}
