package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
)

type job struct {
	ID          string         `bson:"_id"`
	Bot         string         `bson:"bot"`
	NextRunTime int64          `bson:"next_run_time"`
	Status      bool           `bson:"status"`
	Data        map[string]any `bson:"data"`
}

func TestFindOneAndNotFound(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, "jobs", job{ID: "a", Bot: "b1", Status: true, NextRunTime: 10})
	require.NoError(t, err)

	var got job
	require.NoError(t, s.FindOne(ctx, "jobs", store.Active("b1"), &got))
	assert.Equal(t, "a", got.ID)

	err = s.FindOne(ctx, "jobs", bson.M{"bot": "other"}, &got)
	assert.ErrorIs(t, err, errx.ErrNotFound)
}

func TestFindOperatorsSortAndLimit(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for i, id := range []string{"c", "a", "b", "d"} {
		_, err := s.Insert(ctx, "jobs", job{ID: id, Bot: "b1", NextRunTime: int64(10 * (i + 1)), Data: map[string]any{"kind": id}})
		require.NoError(t, err)
	}

	var due []job
	err := s.Find(ctx, "jobs", bson.M{"next_run_time": bson.M{"$lte": int64(30)}}, store.FindOptions{SortBy: "_id"}, &due)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{due[0].ID, due[1].ID, due[2].ID})

	var limited []job
	err = s.Find(ctx, "jobs", bson.M{"data.kind": bson.M{"$in": []string{"a", "d"}}}, store.FindOptions{SortBy: "next_run_time", Desc: true, Limit: 1}, &limited)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "d", limited[0].ID)
}

func TestUpdateUpsertAndDelete(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	err := s.Update(ctx, "state", bson.M{"bot": "b1"}, bson.M{"last_email_uid": int64(9)}, false)
	assert.ErrorIs(t, err, errx.ErrNotFound)

	require.NoError(t, s.Update(ctx, "state", bson.M{"bot": "b1"}, bson.M{"last_email_uid": int64(9)}, true))
	require.NoError(t, s.Update(ctx, "state", bson.M{"bot": "b1"}, bson.M{"last_email_uid": int64(12), "meta.at": time.Unix(5, 0).UTC()}, true))
	assert.Equal(t, 1, s.Len("state"))

	var got struct {
		Bot  string `bson:"bot"`
		UID  int64  `bson:"last_email_uid"`
		Meta struct {
			At time.Time `bson:"at"`
		} `bson:"meta"`
	}
	require.NoError(t, s.FindOne(ctx, "state", bson.M{"bot": "b1"}, &got))
	assert.Equal(t, int64(12), got.UID)
	assert.Equal(t, time.Unix(5, 0).UTC(), got.Meta.At.UTC())

	ok, err := s.Delete(ctx, "state", bson.M{"bot": "b1"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "state", bson.M{"bot": "b1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUntypedFieldsDecodeAsMaps(t *testing.T) {
	t.Parallel()

	type rule struct {
		Name  string `bson:"name"`
		Value any    `bson:"value"`
	}
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, "rules", rule{Name: "r", Value: map[string]any{"city": "Paris"}})
	require.NoError(t, err)

	var one rule
	require.NoError(t, s.FindOne(ctx, "rules", bson.M{"name": "r"}, &one))
	assert.Equal(t, bson.M{"city": "Paris"}, one.Value)

	var many []rule
	require.NoError(t, s.Find(ctx, "rules", bson.M{}, store.FindOptions{}, &many))
	require.Len(t, many, 1)
	assert.Equal(t, bson.M{"city": "Paris"}, many[0].Value)
}
