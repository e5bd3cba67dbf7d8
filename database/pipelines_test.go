package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sanjiv-madhavan/go-natours/constants"
)

func stage(t *testing.T, pipeline mongo.Pipeline, i int) (string, any) {
	t.Helper()
	require.Greater(t, len(pipeline), i)
	require.Len(t, pipeline[i], 1)
	return pipeline[i][0].Key, pipeline[i][0].Value
}

func TestStatsPipeline(t *testing.T) {
	match := bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}
	pipeline := StatsPipeline(match)

	key, value := stage(t, pipeline, 0)
	assert.Equal(t, "$match", key)
	assert.Equal(t, match, value)

	key, _ = stage(t, pipeline, 1)
	assert.Equal(t, "$group", key)

	key, value = stage(t, pipeline, len(pipeline)-1)
	assert.Equal(t, "$sort", key)
	assert.Equal(t, bson.D{{Key: "avgPrice", Value: 1}}, value)
}

func TestMonthlyPlanPipeline(t *testing.T) {
	pipeline := MonthlyPlanPipeline(2021, bson.M{"secretTour": bson.M{"$ne": true}})

	key, _ := stage(t, pipeline, 1)
	assert.Equal(t, "$unwind", key)

	key, value := stage(t, pipeline, 2)
	assert.Equal(t, "$match", key)
	window := value.(bson.M)["startDates"].(bson.M)
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), window["$gte"])
	assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), window["$lt"])

	key, value = stage(t, pipeline, len(pipeline)-1)
	assert.Equal(t, "$limit", key)
	assert.Equal(t, 12, value)
}

func TestDistancesPipeline(t *testing.T) {
	match := bson.M{"secretTour": bson.M{"$ne": true}}
	pipeline := DistancesPipeline(-118.11, 34.11, 0.001, match)

	key, value := stage(t, pipeline, 0)
	require.Equal(t, "$geoNear", key)
	geoNear := value.(bson.D).Map()
	assert.Equal(t, match, geoNear["query"])
	assert.Equal(t, 0.001, geoNear["distanceMultiplier"])
	assert.Equal(t, bson.A{-118.11, 34.11}, geoNear["near"].(bson.M)["coordinates"])
}

func TestRatingStatsPipeline(t *testing.T) {
	tourID := primitive.NewObjectID()
	key, value := stage(t, RatingStatsPipeline(tourID), 0)
	assert.Equal(t, "$match", key)
	assert.Equal(t, bson.M{"tour": tourID}, value)
}

func TestCollectionIndexes(t *testing.T) {
	indexes := collectionIndexes()
	require.Contains(t, indexes, constants.UserCollection)
	email := indexes[constants.UserCollection][0]
	require.NotNil(t, email.Options)
	assert.True(t, *email.Options.Unique)

	var geo bool
	for _, index := range indexes[constants.TourCollection] {
		if keys := index.Keys.(bson.D); keys[0].Key == "startLocation" {
			geo = keys[0].Value == "2dsphere"
		}
	}
	assert.True(t, geo)
}
