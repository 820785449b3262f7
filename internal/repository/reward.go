package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/proarena/arena/internal/database"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

// RewardRepository is read-only: reward records are written exclusively by
// LedgerRepository.GrantReward, inside the credit transaction.
type RewardRepository interface {
	ListByUser(ctx context.Context, userId string) ([]models.RewardRecord, error)
}

type rewardRepo struct {
	db *database.DynamoDBClient
}

func NewRewardRepository(db *database.DynamoDBClient) RewardRepository {
	return &rewardRepo{db: db}
}

func (r *rewardRepo) ListByUser(ctx context.Context, userId string) ([]models.RewardRecord, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			":prefix": &types.AttributeValueMemberS{Value: models.RewardSKPrefix()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to list rewards")
	}

	var rewards []models.RewardRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &rewards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rewards: %w", err)
	}

	return rewards, nil
}
