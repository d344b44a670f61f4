package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingIsFirstRun(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "bot_state.json"))
	cp, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cp != nil {
		t.Fatalf("expected no checkpoint, got %+v", cp)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "state", "bot_state.json"))
	want := time.Date(2025, 6, 26, 17, 30, 15, 250000000, time.Local)

	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	cp, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cp == nil || !cp.LastCheckTime.Equal(want) {
		t.Fatalf("got %+v, want %v", cp, want)
	}
	if cp.UpdatedAt.IsZero() {
		t.Fatal("updated_at not written")
	}
}

func TestLoadAcceptsPythonAndRFC3339(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "naive with micros",
			raw:  `{"last_check_time": "2025-06-19T18:30:00.123456", "updated_at": "2025-06-19T18:30:00.123456"}`,
			want: time.Date(2025, 6, 19, 18, 30, 0, 123456000, time.Local),
		},
		{
			name: "naive without fraction",
			raw:  `{"last_check_time": "2025-06-19T18:30:00"}`,
			want: time.Date(2025, 6, 19, 18, 30, 0, 0, time.Local),
		},
		{
			name: "rfc3339",
			raw:  `{"last_check_time": "2025-06-19T15:30:00Z"}`,
			want: time.Date(2025, 6, 19, 15, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "bot_state.json")
			if err := os.WriteFile(p, []byte(tt.raw), 0o644); err != nil {
				t.Fatal(err)
			}
			cp, err := NewFileStore(p).Load(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if cp == nil || !cp.LastCheckTime.Equal(tt.want) {
				t.Fatalf("got %+v, want %v", cp, tt.want)
			}
		})
	}
}

func TestLoadCorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bot_state.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(p).Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}
