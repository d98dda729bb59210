package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Bootstrap creates the sessions table if it does not exist and turns on
// DynamoDB TTL over expires_at. Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, sessionsTable string, logger *zap.Logger) {
	createTable(ctx, client, logger, &dynamodb.CreateTableInput{
		TableName:   aws.String(sessionsTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrSessionID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrSessionID), KeyType: types.KeyTypeHash},
		},
	})
	enableTTL(ctx, client, logger, sessionsTable, attrExpiresAt)
}

func createTable(ctx context.Context, client *dynamodb.Client, logger *zap.Logger, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			logger.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
		}
		return
	}
	logger.Info("created table", zap.String("table", *input.TableName))
}

func enableTTL(ctx context.Context, client *dynamodb.Client, logger *zap.Logger, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		logger.Debug("could not enable TTL", zap.String("table", tableName), zap.Error(err))
	}
}
