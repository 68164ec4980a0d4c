package s3

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/tilemat/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue // base_uri:version -> item
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func itemKey(item map[string]types.AttributeValue) string {
	return item["base_uri"].(*types.AttributeValueMemberS).Value + ":" +
		item["version"].(*types.AttributeValueMemberN).Value
}

func itemVersion(item map[string]types.AttributeValue) uint64 {
	v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
	return v
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey(params.Item)
	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		va, vb := itemVersion(a), itemVersion(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func (m *mockDDBClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDDBClient) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// racingDDBClient makes every conditional write lose, as if another writer
// committed the same version first.
type racingDDBClient struct {
	*mockDDBClient
}

func (r *racingDDBClient) PutItem(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
}

func newTestCommitStore(ddb DDBClient, s3Client Client) *DDBCommitStore {
	store := &Store{client: s3Client, bucket: "test-bucket", prefix: "test-prefix", upload: DefaultUploadConfig()}
	return NewDDBCommitStore(store, ddb, "test-table", "s3://test-bucket/test-prefix")
}

func readPointer(t *testing.T, s blobstore.BlobStore, name string) string {
	t.Helper()
	data, err := blobstore.ReadAll(t.Context(), s, name)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStore_Pointer(t *testing.T) {
	ddb := newMockDDBClient()
	store := newTestCommitStore(ddb, &MockS3Client{})
	ctx := t.Context()

	_, err := store.Open(ctx, "c/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "c/CURRENT", []byte("c.staging-1")))
	assert.Equal(t, "c.staging-1", readPointer(t, store, "c/CURRENT"))

	require.NoError(t, store.Put(ctx, "c/CURRENT", []byte("c.staging-2")))
	assert.Equal(t, "c.staging-2", readPointer(t, store, "c/CURRENT"))
	assert.Equal(t, 2, ddb.len(), "every commit is a new version")
}

func TestDDBCommitStore_ManyVersionsOrderNumerically(t *testing.T) {
	ddb := newMockDDBClient()
	store := newTestCommitStore(ddb, &MockS3Client{})

	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(t.Context(), "CURRENT", fmt.Appendf(nil, "v%d", i)))
	}
	assert.Equal(t, "v12", readPointer(t, store, "CURRENT"))
}

func TestDDBCommitStore_ConcurrentModification(t *testing.T) {
	store := newTestCommitStore(&racingDDBClient{newMockDDBClient()}, &MockS3Client{})

	err := store.Put(t.Context(), "c/CURRENT", []byte("c.staging-1"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ddb := newMockDDBClient()
	s3Client := &MockS3Client{}
	a := NewDDBCommitStore(&Store{client: s3Client, bucket: "b", prefix: "a"}, ddb, "t", "s3://b/a")
	b := NewDDBCommitStore(&Store{client: s3Client, bucket: "b", prefix: "b"}, ddb, "t", "s3://b/b")

	require.NoError(t, a.Put(t.Context(), "c/CURRENT", []byte("from-a")))
	require.NoError(t, a.Put(t.Context(), "d/CURRENT", []byte("d-from-a")))

	_, err := b.Open(t.Context(), "c/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, "from-a", readPointer(t, a, "c/CURRENT"))
	assert.Equal(t, "d-from-a", readPointer(t, a, "d/CURRENT"))
}

func TestDDBCommitStore_DeletePointer(t *testing.T) {
	ddb := newMockDDBClient()
	store := newTestCommitStore(ddb, &MockS3Client{})
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, "c/CURRENT", []byte("one")))
	require.NoError(t, store.Put(ctx, "c/CURRENT", []byte("two")))
	require.NoError(t, store.Delete(ctx, "c/CURRENT"))

	assert.Zero(t, ddb.len())
	_, err := store.Open(ctx, "c/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "c/CURRENT"), "deleting a missing pointer is a no-op")
}

func TestDDBCommitStore_CreatePointerRejected(t *testing.T) {
	store := newTestCommitStore(newMockDDBClient(), &MockS3Client{})

	_, err := store.Create(t.Context(), "c/CURRENT")
	assert.Error(t, err)
}

func TestDDBCommitStore_DelegatesDataBlobs(t *testing.T) {
	s3Client := new(MockS3Client)
	ddb := newMockDDBClient()
	store := newTestCommitStore(ddb, s3Client)

	s3Client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "test-prefix/c/c.0.0"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(t.Context(), "c/c.0.0", []byte("chunk")))
	assert.Zero(t, ddb.len(), "data blobs never touch DynamoDB")
	s3Client.AssertExpectations(t)
}

func TestPointerBlob(t *testing.T) {
	b := &pointerBlob{content: []byte("target")}
	assert.Equal(t, int64(6), b.Size())

	buf := make([]byte, 3)
	n, err := b.ReadAt(t.Context(), buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "get", string(buf[:n]))

	n, err = b.ReadAt(t.Context(), make([]byte, 10), 4)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	r, err := b.ReadRange(t.Context(), 1, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "arget", string(got))
	require.NoError(t, b.Close())
}
