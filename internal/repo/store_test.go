package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/repo"
)

type testEnv struct {
	Ctx   context.Context
	Mongo *mongodb.MongoDBContainer
	Store *repo.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	mc, err := mongodb.RunContainer(ctx,
		testcontainers.WithImage("mongo:6"),
	)
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}

	store, err := repo.NewStore(ctx, uri, "parcelhub_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close(ctx)
		_ = mc.Terminate(ctx)
	})
	return &testEnv{Ctx: ctx, Mongo: mc, Store: store}
}

func TestCreateUser_DuplicateKeysMapToConflict(t *testing.T) {
	e := newTestEnv(t)

	u := &domain.User{Name: "Jane", Username: "jane", Email: "jane@gmail.com"}
	if err := e.Store.CreateUser(e.Ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.ID.IsZero() {
		t.Fatal("inserted id not set back")
	}

	// email index
	dupEmail := &domain.User{Name: "Other", Username: "other", Email: "jane@gmail.com"}
	if err := e.Store.CreateUser(e.Ctx, dupEmail); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}

	// username index, different email
	dupName := &domain.User{Name: "Jane Y", Username: "jane", Email: "jane@yahoo.com"}
	if err := e.Store.CreateUser(e.Ctx, dupName); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate username: err = %v, want ErrConflict", err)
	}

	got, err := e.Store.FindUserByEmail(e.Ctx, "jane@gmail.com")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != u.ID {
		t.Errorf("FindUserByEmail = %+v", got)
	}

	missing, err := e.Store.FindUserByEmail(e.Ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("absent user: got (%+v, %v), want (nil, nil)", missing, err)
	}

	byID, err := e.Store.FindUserByID(e.Ctx, u.ID)
	if err != nil || byID == nil || byID.Email != u.Email {
		t.Errorf("FindUserByID = (%+v, %v)", byID, err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	e := newTestEnv(t)

	uid := primitive.NewObjectID()
	if err := e.Store.SaveRefresh(e.Ctx, uid, "plain-token", time.Hour); err != nil {
		t.Fatal(err)
	}

	rt, err := e.Store.FindValidRefresh(e.Ctx, "plain-token")
	if err != nil {
		t.Fatal(err)
	}
	if rt == nil || rt.UserID != uid {
		t.Fatalf("valid token lookup = %+v", rt)
	}
	if rt.TokenHash == "plain-token" {
		t.Error("token stored unhashed")
	}

	if got, err := e.Store.FindValidRefresh(e.Ctx, "wrong-token"); err != nil || got != nil {
		t.Errorf("unknown token: got (%+v, %v), want (nil, nil)", got, err)
	}

	if err := e.Store.RevokeRefresh(e.Ctx, "plain-token"); err != nil {
		t.Fatal(err)
	}
	if got, err := e.Store.FindValidRefresh(e.Ctx, "plain-token"); err != nil || got != nil {
		t.Errorf("revoked token still valid: (%+v, %v)", got, err)
	}

	// already expired at save time
	if err := e.Store.SaveRefresh(e.Ctx, uid, "stale-token", -time.Minute); err != nil {
		t.Fatal(err)
	}
	if got, err := e.Store.FindValidRefresh(e.Ctx, "stale-token"); err != nil || got != nil {
		t.Errorf("expired token still valid: (%+v, %v)", got, err)
	}
}

func testPickup() *domain.Pickup {
	return &domain.Pickup{
		PickupID: domain.NewPickupID(),
		LabelIDs: []string{"se-1"},
		Contact:  domain.ContactDetails{Name: "Jane", Email: "jane@example.com", Phone: "555"},
		Window: domain.PickupWindow{
			StartAt: time.Now().UTC().Add(3 * time.Hour).Truncate(time.Millisecond),
			EndAt:   time.Now().UTC().Add(5 * time.Hour).Truncate(time.Millisecond),
		},
		Address: domain.PickupAddress{
			Name: "Jane", Phone: "555", AddressLine1: "1 Main St",
			CityLocality: "Austin", StateProvince: "TX", PostalCode: "78701", CountryCode: "US",
		},
	}
}

func TestPickupSoftDelete(t *testing.T) {
	e := newTestEnv(t)

	p := testPickup()
	if err := e.Store.CreatePickup(e.Ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := e.Store.FindPickup(e.Ctx, p.PickupID)
	if err != nil || got == nil {
		t.Fatalf("find active = (%+v, %v)", got, err)
	}

	cancelled, err := e.Store.CancelPickup(e.Ctx, p.PickupID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled == nil || !cancelled.IsDeleted || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled = %+v", cancelled)
	}

	// soft-deleted pickups are invisible to every read path
	if got, err := e.Store.FindPickup(e.Ctx, p.PickupID); err != nil || got != nil {
		t.Errorf("find after cancel = (%+v, %v), want (nil, nil)", got, err)
	}
	if again, err := e.Store.CancelPickup(e.Ctx, p.PickupID); err != nil || again != nil {
		t.Errorf("cancel twice = (%+v, %v), want (nil, nil)", again, err)
	}
	list, total, err := e.Store.ListPickups(e.Ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("list after cancel = %d items, total %d", len(list), total)
	}
}

func TestPickupListAndNotificationFlag(t *testing.T) {
	e := newTestEnv(t)

	var ids []string
	for i := 0; i < 3; i++ {
		p := testPickup()
		if err := e.Store.CreatePickup(e.Ctx, p); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.PickupID)
	}

	list, total, err := e.Store.ListPickups(e.Ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(list) != 2 {
		t.Errorf("page 1: %d items, total %d", len(list), total)
	}
	list, _, err = e.Store.ListPickups(e.Ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("page 2: %d items", len(list))
	}

	if err := e.Store.MarkNotificationSent(e.Ctx, ids[0]); err != nil {
		t.Fatal(err)
	}
	got, err := e.Store.FindPickup(e.Ctx, ids[0])
	if err != nil || got == nil {
		t.Fatal(err)
	}
	if !got.NotificationSent {
		t.Error("notification_sent flag not persisted")
	}

	// duplicate pickup_id is rejected by the unique index
	dup := testPickup()
	dup.PickupID = ids[0]
	if err := e.Store.CreatePickup(e.Ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate pickup id: err = %v, want ErrConflict", err)
	}
}
