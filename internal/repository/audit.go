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

type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByTournament(ctx context.Context, tournamentId string) ([]models.AuditEntry, error)
}

type auditRepo struct {
	db *database.DynamoDBClient
}

func NewAuditRepository(db *database.DynamoDBClient) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	entry.PK = models.TournamentPK(entry.TournamentId)
	entry.SK = models.AuditSK(entry.OccurredAt, entry.AuditId)

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to append audit entry")
	}

	return nil
}

func (r *auditRepo) ListByTournament(ctx context.Context, tournamentId string) ([]models.AuditEntry, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			":prefix": &types.AttributeValueMemberS{Value: models.AuditSKPrefix()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to list audit entries")
	}

	var entries []models.AuditEntry
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit entries: %w", err)
	}

	return entries, nil
}
