package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nova-cloud/alertdex/internal/domain"
	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
)

// --- Mocks ---

type findCall struct {
	collection string
	filter     bson.D
	opts       domquery.Options
}

type mockStore struct {
	findDocs    []bson.M
	findErr     error
	findCalls   []findCall
	count       int64
	countErr    error
	collections []string
	indexes     []bson.M
	commandDocs bson.M
	commandErr  error
	commands    []bson.D
}

func (m *mockStore) Find(
	_ context.Context, collection string, filter bson.D, opts domquery.Options,
) ([]bson.M, error) {
	m.findCalls = append(m.findCalls, findCall{collection, filter, opts})
	return m.findDocs, m.findErr
}

func (m *mockStore) CountDocuments(_ context.Context, _ string, _ bson.D) (int64, error) {
	return m.count, m.countErr
}

func (m *mockStore) ListCollectionNames(_ context.Context) ([]string, error) {
	return m.collections, nil
}

func (m *mockStore) ListIndexes(_ context.Context, _ string) ([]bson.M, error) {
	return m.indexes, nil
}

func (m *mockStore) RunCommand(_ context.Context, cmd bson.D) (bson.M, error) {
	m.commands = append(m.commands, cmd)
	return m.commandDocs, m.commandErr
}

// --- Tests ---

func TestFind_ForwardsFilterAndOptions(t *testing.T) {
	store := &mockStore{findDocs: []bson.M{{"candid": int64(1)}}}
	svc := New(store)

	filter := bson.D{{Key: "candidate.drb", Value: bson.D{{Key: "$gt", Value: 0.9}}}}
	limit := int64(7)

	docs, err := svc.Find(context.Background(), "ZTF_alerts", filter, nil, domquery.Kwargs{Limit: &limit})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d docs, want 1", len(docs))
	}

	if len(store.findCalls) != 1 {
		t.Fatalf("store.Find called %d times, want 1", len(store.findCalls))
	}
	call := store.findCalls[0]
	if call.collection != "ZTF_alerts" {
		t.Errorf("collection = %q, want ZTF_alerts", call.collection)
	}
	if !reflect.DeepEqual(call.filter, filter) {
		t.Errorf("filter = %#v, want %#v", call.filter, filter)
	}
	if call.opts.Limit == nil || *call.opts.Limit != 7 {
		t.Errorf("limit = %v, want 7", call.opts.Limit)
	}
}

func TestSample_SizeBounds(t *testing.T) {
	for _, size := range []int64{1001, -1} {
		store := &mockStore{}
		svc := New(store)

		_, err := svc.Sample(context.Background(), "ZTF_alerts", size)
		if !errors.Is(err, domain.ErrBadRequest) {
			t.Errorf("Sample(%d): err = %v, want ErrBadRequest", size, err)
		}
		if len(store.findCalls) != 0 {
			t.Errorf("Sample(%d) issued %d storage queries, want 0", size, len(store.findCalls))
		}
	}
}

func TestSample_LimitsToSize(t *testing.T) {
	store := &mockStore{}
	svc := New(store)

	if _, err := svc.Sample(context.Background(), "ZTF_alerts", 25); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	call := store.findCalls[0]
	if call.filter != nil {
		t.Errorf("sample filter = %#v, want nil", call.filter)
	}
	if call.opts.Limit == nil || *call.opts.Limit != 25 {
		t.Errorf("limit = %v, want 25", call.opts.Limit)
	}
}

func TestConeSearch_OneResultSetPerTarget(t *testing.T) {
	store := &mockStore{findDocs: []bson.M{{"objectId": "x"}}}
	svc := New(store)

	targets := []domquery.ConeSearchTarget{
		{Name: "a", RA: 10, Dec: 20},
		{Name: "b", RA: 30, Dec: 40},
	}
	out, err := svc.ConeSearch(
		context.Background(), "ZTF_alerts", nil, nil, 2.5, domquery.Arcseconds, targets, domquery.Kwargs{},
	)
	if err != nil {
		t.Fatalf("ConeSearch: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("got %d result sets, want 2", len(out))
	}
	for _, name := range []string{"a", "b"} {
		if _, ok := out[name]; !ok {
			t.Errorf("missing result set for target %q", name)
		}
	}
	if len(store.findCalls) != 2 {
		t.Fatalf("store.Find called %d times, want 2", len(store.findCalls))
	}
	for i, call := range store.findCalls {
		want := domquery.ConeSearchFilter(nil, targets[i].RA, targets[i].Dec, 2.5, domquery.Arcseconds)
		if !reflect.DeepEqual(call.filter, want) {
			t.Errorf("target %d filter = %#v, want %#v", i, call.filter, want)
		}
	}
}

func TestCatalogNames_DropsSystemAndSorts(t *testing.T) {
	store := &mockStore{collections: []string{"ZTF_alerts", "system.views", "DECAM_alerts"}}
	svc := New(store)

	names, err := svc.CatalogNames(context.Background())
	if err != nil {
		t.Fatalf("CatalogNames: %v", err)
	}
	want := []string{"DECAM_alerts", "ZTF_alerts"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestCatalogInfo_RunsCollstatsPerCatalog(t *testing.T) {
	store := &mockStore{commandDocs: bson.M{"count": int32(10)}}
	svc := New(store)

	out, err := svc.CatalogInfo(context.Background(), []string{"ZTF_alerts", "DECAM_alerts"})
	if err != nil {
		t.Fatalf("CatalogInfo: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("got %d stats docs, want 2", len(out))
	}
	if len(store.commands) != 2 || store.commands[0][0].Key != "collstats" {
		t.Errorf("commands = %#v, want two collstats", store.commands)
	}
}

func TestDBInfo_RunsDbstats(t *testing.T) {
	store := &mockStore{commandDocs: bson.M{"db": "boom"}}
	svc := New(store)

	if _, err := svc.DBInfo(context.Background()); err != nil {
		t.Fatalf("DBInfo: %v", err)
	}
	if len(store.commands) != 1 || store.commands[0][0].Key != "dbstats" {
		t.Errorf("commands = %#v, want one dbstats", store.commands)
	}
}

func TestFind_StoreError(t *testing.T) {
	store := &mockStore{findErr: errors.New("socket closed")}
	svc := New(store)

	if _, err := svc.Find(context.Background(), "ZTF_alerts", bson.D{}, nil, domquery.Kwargs{}); err == nil {
		t.Fatal("Find: want error")
	}
}
