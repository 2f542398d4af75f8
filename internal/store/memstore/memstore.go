// Package memstore is an in-memory store.Store. It supports the subset of the
// Mongo query language the runtime uses: equality on dotted paths and the
// $gt, $gte, $lt, $lte, $ne and $in operators.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/primitive"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
)

// Store keeps documents per collection in insertion order.
type Store struct {
	mu    sync.RWMutex
	colls map[string][]bson.M
}

// New returns an empty Store.
func New() *Store {
	return &Store{colls: make(map[string][]bson.M)}
}

var _ store.Store = (*Store)(nil)

func (s *Store) FindOne(_ context.Context, collection string, filter bson.M, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.colls[collection] {
		if matches(doc, filter) {
			return decode(doc, out)
		}
	}
	return errx.WrapMongo(errx.ErrNotFound)
}

func (s *Store) Find(_ context.Context, collection string, filter bson.M, opts store.FindOptions, out any) error {
	s.mu.RLock()
	matched := make([]bson.M, 0)
	for _, doc := range s.colls[collection] {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()

	if opts.SortBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := lookup(matched[i], opts.SortBy)
			b, _ := lookup(matched[j], opts.SortBy)
			c, _ := compare(a, b)
			if opts.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("memstore: results must be a pointer to a slice, got %T", out)
	}
	sliceType := rv.Elem().Type()
	items := reflect.MakeSlice(sliceType, 0, len(matched))
	for _, doc := range matched {
		item := reflect.New(sliceType.Elem())
		if err := decode(doc, item.Interface()); err != nil {
			return fmt.Errorf("memstore: decode result: %w", err)
		}
		items = reflect.Append(items, item.Elem())
	}
	rv.Elem().Set(items)
	return nil
}

func (s *Store) Insert(_ context.Context, collection string, doc any) (string, error) {
	m, err := toM(doc)
	if err != nil {
		return "", err
	}
	if _, ok := m["_id"]; !ok {
		m["_id"] = primitive.NewObjectID()
	}
	s.mu.Lock()
	s.colls[collection] = append(s.colls[collection], m)
	s.mu.Unlock()
	return idString(m["_id"]), nil
}

func (s *Store) Update(_ context.Context, collection string, filter bson.M, set bson.M, upsert bool) error {
	normalized, err := toM(set)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.colls[collection] {
		if matches(doc, filter) {
			for k, v := range normalized {
				assign(doc, k, v)
			}
			return nil
		}
	}
	if !upsert {
		return errx.WrapMongo(errx.ErrNotFound)
	}
	doc := bson.M{}
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if _, isOp := v.(bson.M); isOp {
			continue
		}
		assign(doc, k, v)
	}
	for k, v := range normalized {
		assign(doc, k, v)
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	fresh, err := toM(doc)
	if err != nil {
		return err
	}
	s.colls[collection] = append(s.colls[collection], fresh)
	return nil
}

func (s *Store) Delete(_ context.Context, collection string, filter bson.M) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.colls[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			s.colls[collection] = append(docs[:i:i], docs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[collection])
}

func toM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memstore: normalize document: %w", err)
	}
	return m, nil
}

// decode mirrors the Mongo store's client options: embedded documents in
// untyped fields come back as maps, not ordered key/value pairs.
func decode(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(raw))
	if err != nil {
		return err
	}
	dec.DefaultDocumentM()
	return dec.Decode(out)
}

func idString(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func matches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		got, found := lookup(doc, key)
		if ops, ok := want.(bson.M); ok && isOperatorDoc(ops) {
			for op, arg := range ops {
				if !applyOp(op, got, found, arg) {
					return false
				}
			}
			continue
		}
		if !found || !equal(got, want) {
			return false
		}
	}
	return true
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return len(m) > 0
}

func applyOp(op string, got any, found bool, arg any) bool {
	switch op {
	case "$ne":
		return !found || !equal(got, arg)
	case "$in":
		rv := reflect.ValueOf(arg)
		if rv.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if found && equal(got, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	case "$exists":
		want, _ := arg.(bool)
		return found == want
	}
	if !found {
		return false
	}
	c, ok := compare(got, arg)
	if !ok {
		return false
	}
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	case "$lte":
		return c <= 0
	}
	return false
}

func lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case bson.M:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			found := false
			for _, e := range node {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

func assign(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		var next bson.M
		switch node := cur[part].(type) {
		case bson.M:
			next = node
		case map[string]any:
			next = bson.M(node)
		case bson.D:
			next = node.Map()
		default:
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		if ab == bb {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case primitive.DateTime:
		return float64(n), true
	case time.Time:
		return float64(primitive.NewDateTimeFromTime(n)), true
	}
	return 0, false
}
