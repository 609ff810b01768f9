package filter

import (
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMandatoryPrefix_StageOrder(t *testing.T) {
	prefix := MandatoryPrefix("ZTF", []int64{1, 2})

	if len(prefix) != 3 {
		t.Fatalf("prefix has %d stages, want 3", len(prefix))
	}
	for i, op := range []string{"$project", "$lookup", "$project"} {
		if prefix[i][0].Key != op {
			t.Errorf("stage %d = %s, want %s", i, prefix[i][0].Key, op)
		}
	}
}

func TestMandatoryPrefix_StripsCutouts(t *testing.T) {
	prefix := MandatoryPrefix("ZTF", []int64{1})

	first, ok := prefix[0][0].Value.(bson.D)
	if !ok {
		t.Fatalf("first stage body is %T, want bson.D", prefix[0][0].Value)
	}
	excluded := map[string]bool{}
	for _, e := range first {
		if v, isInt := e.Value.(int); !isInt || v != 0 {
			t.Errorf("first projection %s = %v, want exclusion", e.Key, e.Value)
		}
		excluded[e.Key] = true
	}
	for _, f := range []string{"cutoutScience", "cutoutTemplate", "cutoutDifference", "publisher", "schemavsn"} {
		if !excluded[f] {
			t.Errorf("first projection does not exclude %s", f)
		}
	}

	// No later stage may reintroduce an image blob.
	for i, stage := range prefix[1:] {
		raw, err := bson.Marshal(stage)
		if err != nil {
			t.Fatalf("marshal stage %d: %v", i+1, err)
		}
		for _, f := range []string{"cutoutScience", "cutoutTemplate", "cutoutDifference"} {
			if strings.Contains(string(raw), f) {
				t.Errorf("stage %d references %s", i+1, f)
			}
		}
	}
}

func TestMandatoryPrefix_LookupTargetsAux(t *testing.T) {
	prefix := MandatoryPrefix("ZTF", []int64{1})

	lookup := prefix[1][0].Value.(bson.D)
	got := map[string]any{}
	for _, e := range lookup {
		got[e.Key] = e.Value
	}
	want := map[string]any{
		"from": "ZTF_aux", "localField": "objectId", "foreignField": "_id", "as": "aux",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lookup = %v, want %v", got, want)
	}
}

func TestMandatoryPrefix_HistoryWindowAndPermissions(t *testing.T) {
	perms := []int64{1, 3}
	prefix := MandatoryPrefix("ZTF", perms)

	project := prefix[2][0].Value.(bson.D)
	var prv bson.D
	for _, e := range project {
		if e.Key == "prv_candidates" {
			prv = e.Value.(bson.D)
		}
	}
	if prv == nil {
		t.Fatal("final projection has no prv_candidates")
	}

	cond := findKey(t, findKey(t, prv, "$filter"), "cond")
	and, ok := findValue(cond, "$and").(bson.A)
	if !ok || len(and) != 2 {
		t.Fatalf("cond = %#v, want $and with 2 clauses", cond)
	}

	in := findValue(and[0].(bson.D), "$in").(bson.A)
	if in[0] != "$$x.programid" || !reflect.DeepEqual(in[1], perms) {
		t.Errorf("$in = %#v, want [$$x.programid %v]", in, perms)
	}

	lt := findValue(and[1].(bson.D), "$lt").(bson.A)
	if lt[1] != HistoryWindowDays {
		t.Errorf("window = %v, want %d", lt[1], HistoryWindowDays)
	}
	sub := findValue(lt[0].(bson.D), "$subtract").(bson.A)
	if sub[0] != "$candidate.jd" || sub[1] != "$$x.jd" {
		t.Errorf("$subtract = %#v, want [$candidate.jd $$x.jd]", sub)
	}
}

func TestNewVersion(t *testing.T) {
	p := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{{Key: "candid", Value: 1}}}}}

	a := NewVersion(p)
	b := NewVersion(p)

	if a.FID == "" || b.FID == "" {
		t.Fatal("version id is empty")
	}
	if a.FID == b.FID {
		t.Errorf("version ids are not unique: %s", a.FID)
	}
	if b.CreatedAt.Before(a.CreatedAt) {
		t.Errorf("created_at decreased: %v then %v", a.CreatedAt, b.CreatedAt)
	}
	if !reflect.DeepEqual(a.Pipeline, p) {
		t.Errorf("pipeline = %#v, want %#v", a.Pipeline, p)
	}
}

func findKey(t *testing.T, d bson.D, key string) bson.D {
	t.Helper()
	v := findValue(d, key)
	inner, ok := v.(bson.D)
	if !ok {
		t.Fatalf("key %s: value is %T, want bson.D", key, v)
	}
	return inner
}

func findValue(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}
