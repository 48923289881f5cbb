package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWatchPipeline_ScopesDeletesToOwner(t *testing.T) {
	owner := primitive.NewObjectID()

	pipeline := watchPipeline(owner)
	require.Len(t, pipeline, 1)
	require.Equal(t, "$match", pipeline[0][0].Key)

	match, ok := pipeline[0][0].Value.(bson.M)
	require.True(t, ok)
	clauses, ok := match["$or"].(bson.A)
	require.True(t, ok)

	assert.Contains(t, clauses, bson.M{"fullDocument.userId": owner})
	assert.Contains(t, clauses, bson.M{"fullDocumentBeforeChange.userId": owner})
	// only deletes that cannot be attributed wake every watcher
	assert.Contains(t, clauses, bson.M{
		"operationType":            "delete",
		"fullDocumentBeforeChange": bson.M{"$exists": false},
	})
	assert.NotContains(t, clauses, bson.M{"operationType": "delete"})
}
