package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type inMemoryRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]Product
}

func newInMemoryRepo() *inMemoryRepo { return &inMemoryRepo{data: map[uuid.UUID]Product{}} }

func (r *inMemoryRepo) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = p
	return p, nil
}

func (r *inMemoryRepo) Get(_ context.Context, id uuid.UUID) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *inMemoryRepo) ListByTenant(_ context.Context, tenantID string) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.data {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *inMemoryRepo) Update(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = p
	return p, nil
}

func (r *inMemoryRepo) Delete(_ context.Context, _ string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

func TestCreateValidatesInput(t *testing.T) {
	t.Parallel()

	svc := New(newInMemoryRepo())
	_, err := svc.Create(context.Background(), "t1", Input{Name: " ", Price: -1, Stock: -2})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")
	require.Contains(t, verr.Fields, "price")
	require.Contains(t, verr.Fields, "stock")
}

func TestUpdateAndDeleteAreTenantScoped(t *testing.T) {
	t.Parallel()

	svc := New(newInMemoryRepo())
	p, err := svc.Create(context.Background(), "t1", Input{Name: "Kopi", Price: 25000, Stock: 5})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "t2", p.ID, Input{Name: "Teh", Price: 1})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), "t2", p.ID), ErrNotFound)

	updated, err := svc.Update(context.Background(), "t1", p.ID, Input{Name: "Kopi Susu", Price: 28000, Stock: 4})
	require.NoError(t, err)
	require.Equal(t, "Kopi Susu", updated.Name)
	require.Equal(t, p.CreatedAt, updated.CreatedAt)

	require.NoError(t, svc.Delete(context.Background(), "t1", p.ID))
	_, err = svc.Get(context.Background(), p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestImportYAML(t *testing.T) {
	t.Parallel()

	svc := New(newInMemoryRepo())
	doc := `
products:
  - name: Kopi Arabika
    price: 25000
    stock: 10
    weight: 250
  - name: Teh Melati
    price: 12000
    description: Daun teh pilihan
`
	result, err := svc.Import(context.Background(), "t1", strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	list, err := svc.ListByTenant(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestImportRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing price":  "products:\n  - name: Kopi\n",
		"negative stock": "products:\n  - name: Kopi\n    price: 1\n    stock: -1\n",
		"fractional":     "products:\n  - name: Kopi\n    price: 1.5\n",
		"unknown field":  "products:\n  - name: Kopi\n    price: 1\n    colour: red\n",
		"empty list":     "products: []\n",
		"not a document": "- just\n- a list\n",
	}
	for name, doc := range cases {
		name, doc := name, doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo := newInMemoryRepo()
			_, err := New(repo).Import(context.Background(), "t1", strings.NewReader(doc))
			require.Error(t, err)
			require.Empty(t, repo.data, "nothing is written when the file is invalid")
		})
	}
}
