package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessionClient serves canned Query pages and records which sessions got
// an UpdateItem.
type fakeSessionClient struct {
	pages      []*dynamodb.QueryOutput
	startKeys  []map[string]types.AttributeValue
	updated    []string
	updateErrs map[string]error
}

func (f *fakeSessionClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeSessionClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeSessionClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.startKeys = append(f.startKeys, in.ExclusiveStartKey)
	if len(f.pages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeSessionClient) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	sid := in.Key["session_id"].(*types.AttributeValueMemberS).Value
	f.updated = append(f.updated, sid)
	if err := f.updateErrs[sid]; err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func sessionItem(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: id},
	}
}

func TestDisableByUser_WalksAllQueryPages(t *testing.T) {
	cursor := sessionItem("s2")
	fake := &fakeSessionClient{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{sessionItem("s1"), sessionItem("s2")},
			LastEvaluatedKey: cursor,
		},
		{
			Items: []map[string]types.AttributeValue{sessionItem("s3")},
		},
	}}
	repo := &SessionRepo{client: fake, tableName: "sessions"}

	require.NoError(t, repo.DisableByUser(context.Background(), "u1"))

	assert.Equal(t, []string{"s1", "s2", "s3"}, fake.updated)
	require.Len(t, fake.startKeys, 2)
	assert.Nil(t, fake.startKeys[0])
	assert.Equal(t, cursor, fake.startKeys[1])
}

func TestDisableByUser_KeepsGoingAfterUpdateFailure(t *testing.T) {
	updErr := errors.New("throttled")
	fake := &fakeSessionClient{
		pages: []*dynamodb.QueryOutput{
			{Items: []map[string]types.AttributeValue{sessionItem("s1"), sessionItem("s2")}},
		},
		updateErrs: map[string]error{"s1": updErr},
	}
	repo := &SessionRepo{client: fake, tableName: "sessions"}

	err := repo.DisableByUser(context.Background(), "u1")

	assert.Equal(t, updErr, err)
	assert.Equal(t, []string{"s1", "s2"}, fake.updated)
}
