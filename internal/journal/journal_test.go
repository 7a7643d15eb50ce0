package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestNopRecord(t *testing.T) {
	var j Journal = Nop{}
	if err := j.Record(context.Background(), Entry{UserEmail: "a@example.com", Kind: KindCheckIn}); err != nil {
		t.Fatalf("Nop.Record: %v", err)
	}
}

func TestEntryBSONFieldNames(t *testing.T) {
	raw, err := bson.Marshal(Entry{
		RecordID:  7,
		UserEmail: "a@example.com",
		Kind:      KindLeave,
		At:        time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		Reason:    "sick",
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"_id", "record_id", "user_email", "kind", "at", "reason"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("field %q missing from %v", key, doc)
		}
	}
	if doc["kind"] != "leave" {
		t.Errorf("kind = %v, want leave", doc["kind"])
	}
}

// Runs only against a real server: MONGODB_URI=mongodb://localhost:27017 go test ./internal/journal
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	j, err := Connect(ctx, uri, "chamcong_test")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer j.Close(ctx)

	email := "journal-" + time.Now().Format("150405.000000") + "@example.com"
	for i, kind := range []Kind{KindCheckIn, KindCheckOut} {
		at := time.Date(2026, 10, 14, 8+i*9, 0, 0, 0, time.UTC)
		if err := j.Record(ctx, Entry{RecordID: 1, UserEmail: email, Kind: kind, At: at}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := j.forUser(ctx, email, 10)
	if err != nil {
		t.Fatalf("forUser: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != KindCheckOut {
		t.Fatalf("entries = %+v", entries)
	}
}
