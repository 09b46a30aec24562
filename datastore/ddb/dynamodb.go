/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	tserrors "github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/storagemodels"
)

// EntityTypeAttribute is injected into every stored item and names its registered type.
const EntityTypeAttribute = "EntityType"

// MaxTransactItems is the DynamoDB limit for a single TransactWriteItems call.
const MaxTransactItems = 100

// API is the subset of the DynamoDB client used by Store. *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
}

// Store implements datastore.Storage on a single DynamoDB table.
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
	stream    []storagemodels.StreamOption
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreamOptions sets the paging options applied to every Query and Scan.
func WithStreamOptions(opts ...storagemodels.StreamOption) Option {
	return func(s *Store) {
		s.stream = append(s.stream, opts...)
	}
}

// ClientConfig describes how to reach DynamoDB.
type ClientConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// New constructs a Store over client for tableName.
func New(client API, tableName string, opts ...Option) *Store {
	s := &Store{
		client:    client,
		tableName: tableName,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a client from cfg and returns a Store on tableName.
func Open(ctx context.Context, cfg ClientConfig, tableName string, opts ...Option) (*Store, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	s := New(client, tableName, opts...)
	s.logger.Info("DynamoDB store initialized",
		zap.String("table", tableName), zap.String("region", cfg.Region))
	return s, nil
}

// TableName returns the table the store reads and writes.
func (d *Store) TableName() string {
	return d.tableName
}

// GetObjectByKey loads the object of type t stored under key. It returns
// nil, nil when no item exists.
func (d *Store) GetObjectByKey(ctx context.Context, t reflect.Type, key any) (any, error) {
	keyObj, err := keyObject(t, key)
	if err != nil {
		return nil, err
	}
	keyMap, err := d.itemKey(t, keyObj)
	if err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       keyMap,
	})
	if err != nil {
		return nil, tserrors.NewStorageError("get", registry.TypeName(t), err)
	}
	if out.Item == nil {
		d.logger.Debug("item not found", zap.String("type", registry.TypeName(t)), zap.Any("key", key))
		return nil, nil
	}
	return decodeItem(t, out.Item)
}

// GetObjects returns the objects of type t matching criteria. criteria may be
// nil (scan the entity type), a *storagemodels.QueryParams (query) or a
// storagemodels.Filter (scan, then filter in memory).
func (d *Store) GetObjects(ctx context.Context, t reflect.Type, criteria any, sorting []storagemodels.SortProperty) ([]any, error) {
	var (
		fetch  pageFunc
		filter storagemodels.Filter
	)
	switch c := criteria.(type) {
	case nil:
		fetch = d.scanPages(t)
	case *storagemodels.QueryParams:
		if c == nil {
			fetch = d.scanPages(t)
			break
		}
		if err := c.Validate(); err != nil {
			return nil, tserrors.NewValidationError("criteria", err.Error())
		}
		fetch = d.queryPages(c)
	case storagemodels.Filter:
		fetch, filter = d.scanPages(t), c
	case func(any) bool:
		fetch, filter = d.scanPages(t), storagemodels.Filter(c)
	default:
		return nil, tserrors.NewValidationError("criteria", fmt.Sprintf("unsupported criteria type %T", criteria))
	}

	objs, err := d.collect(ctx, t, fetch)
	if err != nil {
		return nil, err
	}
	objs = filter.Apply(objs)
	if err := storagemodels.SortObjects(objs, sorting); err != nil {
		return nil, err
	}
	return objs, nil
}

// SaveObjects writes all three sets in one TransactWriteItems call. Inserts
// fail when the item already exists, updates when it does not.
func (d *Store) SaveObjects(ctx context.Context, toInsert, toUpdate, toDelete []any) error {
	total := len(toInsert) + len(toUpdate) + len(toDelete)
	if total == 0 {
		return nil
	}
	if total > MaxTransactItems {
		return tserrors.NewValidationError("objects",
			fmt.Sprintf("%d items exceed the transaction limit of %d", total, MaxTransactItems))
	}

	items := make([]types.TransactWriteItem, 0, total)
	for _, obj := range toInsert {
		put, err := d.putItem(obj, "attribute_not_exists(PK)")
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}
	for _, obj := range toUpdate {
		put, err := d.putItem(obj, "attribute_exists(PK)")
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}
	for _, obj := range toDelete {
		keyMap, err := d.itemKey(reflect.TypeOf(obj), obj)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: &d.tableName,
			Key:       keyMap,
		}})
	}

	_, err := d.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					cond := tserrors.NewConditionFailedError("save", aws.ToString(reason.Message))
					return tserrors.NewStorageError("save", "", fmt.Errorf("%w: %w", cond, err))
				}
			}
		}
		return tserrors.NewStorageError("save", "", err)
	}

	d.logger.Debug("transaction written",
		zap.Int("insert", len(toInsert)), zap.Int("update", len(toUpdate)), zap.Int("delete", len(toDelete)))
	return nil
}

func (d *Store) putItem(obj any, condition string) (*types.Put, error) {
	item, err := encodeItem(obj)
	if err != nil {
		return nil, err
	}
	return &types.Put{
		TableName:           &d.tableName,
		Item:                item,
		ConditionExpression: aws.String(condition),
	}, nil
}

// itemKey builds the PK/SK primary key of obj from its type's index map.
func (d *Store) itemKey(t reflect.Type, obj any) (map[string]types.AttributeValue, error) {
	indexMap, ok := registry.GetIndexMap(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tserrors.ErrNoIndexMap, registry.TypeName(t))
	}
	expanded, err := expandMacros(indexMap, obj)
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(expanded)
}

// encodeItem marshals obj and adds its expanded index attributes and EntityType.
func encodeItem(obj any) (map[string]types.AttributeValue, error) {
	t := reflect.TypeOf(obj)
	indexMap, ok := registry.GetIndexMap(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tserrors.ErrNoIndexMap, registry.TypeName(t))
	}

	av, err := attributevalue.MarshalMap(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	expanded, err := expandMacros(indexMap, obj)
	if err != nil {
		return nil, err
	}
	if _, err := buildKeyFromExpanded(expanded); err != nil {
		return nil, err
	}
	for field, value := range expanded {
		if value == "" {
			continue
		}
		av[DefaultGSIConfigs.Attribute(field)] = &types.AttributeValueMemberS{Value: value}
	}
	av[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: registry.TypeName(t)}
	return av, nil
}

// decodeItem unmarshals item into a new object of type t.
func decodeItem(t reflect.Type, item map[string]types.AttributeValue) (any, error) {
	obj, err := registry.New(t)
	if err != nil {
		return nil, err
	}
	if err := attributevalue.UnmarshalMap(item, obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return obj, nil
}

// itemEntityType reads the EntityType attribute, or "" when it is missing.
func itemEntityType(item map[string]types.AttributeValue) string {
	if s, ok := item[EntityTypeAttribute].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// keyObject allocates a zero object of type t with its key property set to key.
func keyObject(t reflect.Type, key any) (any, error) {
	if key == nil {
		return nil, tserrors.NewValidationError("key", "key is nil")
	}
	obj, err := registry.New(t)
	if err != nil {
		return nil, err
	}
	prop := registry.KeyProperty(t)
	field := reflect.ValueOf(obj).Elem().FieldByName(prop)
	if !field.IsValid() || !field.CanSet() {
		return nil, tserrors.NewValidationError(prop, fmt.Sprintf("%s has no settable key property", registry.TypeName(t)))
	}

	kv := reflect.ValueOf(key)
	switch {
	case kv.Type().AssignableTo(field.Type()):
		field.Set(kv)
	case kv.Type().ConvertibleTo(field.Type()) && kv.Kind() != reflect.String && field.Kind() != reflect.String:
		field.Set(kv.Convert(field.Type()))
	default:
		return nil, tserrors.NewValidationError(prop,
			fmt.Sprintf("key of type %T does not fit %s", key, field.Type()))
	}
	return obj, nil
}

func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			return attributeString(av[strings.Trim(macro, "{}")])
		})
	}
	return res, nil
}

// attributeString renders scalar attribute values; everything else expands to "".
func attributeString(val types.AttributeValue) string {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value)
	default:
		return ""
	}
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
// Both PK and SK must be present and non-empty.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" || strings.HasSuffix(pk, "#") {
		return nil, tserrors.NewValidationError("PK", "expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}
