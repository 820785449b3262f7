package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/proarena/arena/internal/database"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

type SettingsRepository interface {
	GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error)
	PutPaymentSettings(ctx context.Context, settings *models.PaymentSettings) error
}

type settingsRepo struct {
	db *database.DynamoDBClient
}

func NewSettingsRepository(db *database.DynamoDBClient) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SettingsPK()},
			"SK": &types.AttributeValueMemberS{Value: models.PaymentSettingsSK()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to get payment settings")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment settings not configured")
	}

	var settings models.PaymentSettings
	if err := attributevalue.UnmarshalMap(result.Item, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment settings: %w", err)
	}

	return &settings, nil
}

func (r *settingsRepo) PutPaymentSettings(ctx context.Context, settings *models.PaymentSettings) error {
	settings.PK = models.SettingsPK()
	settings.SK = models.PaymentSettingsSK()
	settings.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal payment settings: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to put payment settings")
	}

	return nil
}
