package habits

import (
	"context"
	"errors"
	"testing"

	"github.com/habitloop/habitd/internal/app/storage/memory"
)

func newService() *Service {
	store := memory.New()
	return New(store, store, nil)
}

func strPtr(s string) *string { return &s }

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, CreateInput{Frequency: "DAILY"}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("missing title = %v, want ErrMissingFields", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{Title: "Read"}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("missing frequency = %v, want ErrMissingFields", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{Title: "Read", Frequency: "HOURLY"}); !errors.Is(err, ErrBadFrequency) {
		t.Fatalf("bad frequency = %v, want ErrBadFrequency", err)
	}
}

func TestCreateDefaultsTags(t *testing.T) {
	svc := newService()

	created, err := svc.Create(context.Background(), 1, CreateInput{Title: "Read", Frequency: "DAILY"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Tags == nil || len(created.Tags) != 0 {
		t.Fatalf("tags = %#v, want empty non-nil slice", created.Tags)
	}
}

func TestListPagination(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, title := range []string{"Read", "Run"} {
		if _, err := svc.Create(ctx, 1, CreateInput{Title: title, Frequency: "DAILY"}); err != nil {
			t.Fatalf("Create(%s): %v", title, err)
		}
	}

	items, p, err := svc.List(ctx, 1, "", 1, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("page size = %d, want 1", len(items))
	}
	if p.TotalCount != 2 || p.TotalPages != 2 {
		t.Fatalf("pagination = %+v, want totalCount 2, totalPages 2", p)
	}
	if !p.HasNextPage || p.HasPreviousPage {
		t.Fatalf("page 1 flags = %+v", p)
	}

	_, p2, err := svc.List(ctx, 1, "", 2, 1)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if p2.HasNextPage || !p2.HasPreviousPage {
		t.Fatalf("page 2 flags = %+v", p2)
	}
}

func TestListDefaultsAndValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, p, err := svc.List(ctx, 1, "", 0, 0)
	if err != nil {
		t.Fatalf("List with defaults: %v", err)
	}
	if p.CurrentPage != 1 || p.PageSize != 10 {
		t.Fatalf("defaults = %+v, want page 1, size 10", p)
	}

	if _, _, err := svc.List(ctx, 1, "", -1, 10); !errors.Is(err, ErrBadPagination) {
		t.Fatalf("negative page = %v, want ErrBadPagination", err)
	}
	if _, _, err := svc.List(ctx, 1, "", 1, -5); !errors.Is(err, ErrBadPagination) {
		t.Fatalf("negative limit = %v, want ErrBadPagination", err)
	}
}

func TestListFiltersByTag(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, CreateInput{Title: "Read", Frequency: "DAILY", Tags: []string{"mind"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{Title: "Run", Frequency: "DAILY", Tags: []string{"body"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, p, err := svc.List(ctx, 1, "mind", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Read" {
		t.Fatalf("filtered items = %+v, want just Read", items)
	}
	if p.TotalCount != 1 {
		t.Fatalf("totalCount = %d, want 1", p.TotalCount)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Title: "Read", Frequency: "DAILY"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, created.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's Get = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, created.ID+100, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id Get = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, created.ID, 1); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{
		Title:       "Read",
		Frequency:   "DAILY",
		Description: strPtr("ten pages"),
		Tags:        []string{"mind"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, 1, UpdateInput{Title: strPtr("Read more")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Read more" {
		t.Fatalf("title = %q, want Read more", updated.Title)
	}
	if updated.Description == nil || *updated.Description != "ten pages" {
		t.Fatalf("description changed: %v", updated.Description)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "mind" {
		t.Fatalf("tags changed: %v", updated.Tags)
	}
}

func TestUpdateClearsDescriptionOnExplicitNull(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{
		Title:       "Read",
		Frequency:   "DAILY",
		Description: strPtr("ten pages"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, 1, UpdateInput{
		Description: Optional{Set: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != nil {
		t.Fatalf("description = %q, want cleared", *updated.Description)
	}
}

func TestUpdateRejectsBadFrequency(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Title: "Read", Frequency: "DAILY"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(ctx, created.ID, 1, UpdateInput{Frequency: strPtr("YEARLY")}); !errors.Is(err, ErrBadFrequency) {
		t.Fatalf("Update = %v, want ErrBadFrequency", err)
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Title: "Read", Frequency: "DAILY"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's Delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, created.ID, 1); err != nil {
		t.Fatalf("owner Delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}
