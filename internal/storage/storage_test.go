package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/inkpress/storefront/internal/editor"
	"github.com/inkpress/storefront/internal/export"
	"github.com/inkpress/storefront/internal/models"
	"github.com/inkpress/storefront/internal/printarea"
)

var tshirt = models.Product{ID: "2", Name: "Minimalist Graphic T-Shirt"}

func factory(area printarea.PrintArea) (*editor.Editor, error) {
	return editor.New(area, editor.WithCommitDelay(0))
}

func newSession(t *testing.T, id string) *Session {
	t.Helper()
	areas := printarea.Default().ForProduct("2")
	s, err := NewSession(id, tshirt, areas, "", factory)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestSessionAreas(t *testing.T) {
	s := newSession(t, "s1")
	if s.Area().ID != "front" {
		t.Fatalf("Expected front area, got %s", s.Area().ID)
	}
	front := s.Editor()
	if _, err := front.AddText(editor.TextOptions{Text: "HELLO"}); err != nil {
		t.Fatal(err)
	}

	back, err := s.SwitchArea("back")
	if err != nil {
		t.Fatalf("SwitchArea failed: %v", err)
	}
	if back == front || s.Editor() != back {
		t.Error("Expected a separate editor for the back area")
	}
	if back.Scene().Len() != 0 {
		t.Error("Back area should start empty")
	}

	again, _ := s.SwitchArea("front")
	if again != front {
		t.Error("Switching back should reuse the front editor")
	}
	if got := s.Designed(); len(got) != 1 || got[0] != "front" {
		t.Errorf("Expected [front], got %v", got)
	}
}

func TestSessionUnknownArea(t *testing.T) {
	s := newSession(t, "s1")
	_, err := s.SwitchArea("sleeve")
	if !errors.Is(err, printarea.ErrUnknownPrintArea) {
		t.Errorf("Expected ErrUnknownPrintArea, got %v", err)
	}
	if s.Area().ID != "front" {
		t.Error("Failed switch must keep the active area")
	}
}

func TestBeginExportRejectsConcurrent(t *testing.T) {
	s := newSession(t, "s1")
	release := make(chan struct{})
	blocked := func() *export.Job {
		return export.NewJob(func() (*export.Result, error) {
			<-release
			return &export.Result{}, nil
		})
	}
	instant := func() *export.Job {
		return export.NewJob(func() (*export.Result, error) { return &export.Result{}, nil })
	}

	started, err := s.BeginExport(blocked)
	if err != nil {
		t.Fatalf("BeginExport failed: %v", err)
	}
	if _, err := s.BeginExport(instant); !errors.Is(err, ErrExportPending) {
		t.Errorf("Expected ErrExportPending, got %v", err)
	}
	if !s.ExportPending() {
		t.Error("Expected export to be pending")
	}

	close(release)
	<-started.Done()
	if _, err := s.BeginExport(instant); err != nil {
		t.Errorf("Expected a new export to start, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	store := New(time.Minute)
	store.Set("old", newSession(t, "old"))
	store.Set("new", newSession(t, "new"))

	store.Get("new")
	expired := store.Sweep(time.Now().Add(2 * time.Minute))
	if len(expired) != 2 {
		t.Fatalf("Expected both sessions to expire, got %v", expired)
	}

	store.Set("fresh", newSession(t, "fresh"))
	if got := store.Sweep(time.Now()); len(got) != 0 {
		t.Errorf("Fresh session must survive, swept %v", got)
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("Expected fresh session to remain")
	}

	store.Delete("fresh")
	if len(store.GetAll()) != 0 {
		t.Error("Expected empty store")
	}
}
