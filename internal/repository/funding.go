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

type FundingRepository interface {
	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	CreateRecharge(ctx context.Context, req *models.RechargeRequest) error
	GetWithdrawal(ctx context.Context, userId, requestId string) (*models.WithdrawalRequest, error)
	GetRecharge(ctx context.Context, userId, requestId string) (*models.RechargeRequest, error)
	ListWithdrawalsByStatus(ctx context.Context, status models.RequestStatus) ([]models.WithdrawalRequest, error)
	ListRechargesByStatus(ctx context.Context, status models.RequestStatus) ([]models.RechargeRequest, error)
	ListUserWithdrawals(ctx context.Context, userId string) ([]models.WithdrawalRequest, error)
	ListUserRecharges(ctx context.Context, userId string) ([]models.RechargeRequest, error)
	RejectWithdrawal(ctx context.Context, userId, requestId, notes string, processedAt time.Time) error
	RejectRecharge(ctx context.Context, userId, requestId, notes string, processedAt time.Time) error
}

type fundingRepo struct {
	db *database.DynamoDBClient
}

func NewFundingRepository(db *database.DynamoDBClient) FundingRepository {
	return &fundingRepo{db: db}
}

func (r *fundingRepo) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	req.PK = models.UserPK(req.UserId)
	req.SK = models.WithdrawalSK(req.RequestId)
	req.GSI1PK = models.WithdrawalStatusGSI1PK(req.Status)
	req.GSI1SK = models.SubmittedGSI1SK(req.SubmittedAt)

	return r.putRequest(ctx, req, "withdrawal")
}

func (r *fundingRepo) CreateRecharge(ctx context.Context, req *models.RechargeRequest) error {
	req.PK = models.UserPK(req.UserId)
	req.SK = models.RechargeSK(req.RequestId)
	req.GSI1PK = models.RechargeStatusGSI1PK(req.Status)
	req.GSI1SK = models.SubmittedGSI1SK(req.SubmittedAt)

	return r.putRequest(ctx, req, "recharge")
}

func (r *fundingRepo) putRequest(ctx context.Context, req interface{}, kind string) error {
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", kind, err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeAlreadyExists, kind+" request already exists")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to create "+kind+" request")
	}

	return nil
}

func (r *fundingRepo) GetWithdrawal(ctx context.Context, userId, requestId string) (*models.WithdrawalRequest, error) {
	item, err := r.getRequestItem(ctx, userId, models.WithdrawalSK(requestId))
	if err != nil {
		return nil, err
	}

	var req models.WithdrawalRequest
	if err := attributevalue.UnmarshalMap(item, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawal request: %w", err)
	}
	return &req, nil
}

func (r *fundingRepo) GetRecharge(ctx context.Context, userId, requestId string) (*models.RechargeRequest, error) {
	item, err := r.getRequestItem(ctx, userId, models.RechargeSK(requestId))
	if err != nil {
		return nil, err
	}

	var req models.RechargeRequest
	if err := attributevalue.UnmarshalMap(item, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recharge request: %w", err)
	}
	return &req, nil
}

func (r *fundingRepo) getRequestItem(ctx context.Context, userId, sk string) (map[string]types.AttributeValue, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to get funding request")
	}
	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "funding request not found")
	}
	return result.Item, nil
}

func (r *fundingRepo) ListWithdrawalsByStatus(ctx context.Context, status models.RequestStatus) ([]models.WithdrawalRequest, error) {
	items, err := r.queryStatusIndex(ctx, models.WithdrawalStatusGSI1PK(status))
	if err != nil {
		return nil, err
	}

	var reqs []models.WithdrawalRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &reqs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawal requests: %w", err)
	}
	return reqs, nil
}

func (r *fundingRepo) ListRechargesByStatus(ctx context.Context, status models.RequestStatus) ([]models.RechargeRequest, error) {
	items, err := r.queryStatusIndex(ctx, models.RechargeStatusGSI1PK(status))
	if err != nil {
		return nil, err
	}

	var reqs []models.RechargeRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &reqs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recharge requests: %w", err)
	}
	return reqs, nil
}

func (r *fundingRepo) queryStatusIndex(ctx context.Context, gsi1pk string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :status"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: gsi1pk},
		},
		// Oldest submissions first, so admins process the backlog in order.
		ScanIndexForward: aws.Bool(true),
	}

	items := make([]map[string]types.AttributeValue, 0)
	paginator := dynamodb.NewQueryPaginator(r.db.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to query funding requests")
		}
		items = append(items, page.Items...)
	}

	return items, nil
}

func (r *fundingRepo) ListUserWithdrawals(ctx context.Context, userId string) ([]models.WithdrawalRequest, error) {
	items, err := r.queryUserPrefix(ctx, userId, "WITHDRAWAL#")
	if err != nil {
		return nil, err
	}

	var reqs []models.WithdrawalRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &reqs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawal requests: %w", err)
	}
	return reqs, nil
}

func (r *fundingRepo) ListUserRecharges(ctx context.Context, userId string) ([]models.RechargeRequest, error) {
	items, err := r.queryUserPrefix(ctx, userId, "RECHARGE#")
	if err != nil {
		return nil, err
	}

	var reqs []models.RechargeRequest
	if err := attributevalue.UnmarshalListOfMaps(items, &reqs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recharge requests: %w", err)
	}
	return reqs, nil
}

func (r *fundingRepo) queryUserPrefix(ctx context.Context, userId, prefix string) ([]map[string]types.AttributeValue, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to query user funding requests")
	}
	return result.Items, nil
}

func (r *fundingRepo) RejectWithdrawal(ctx context.Context, userId, requestId, notes string, processedAt time.Time) error {
	return r.rejectRequest(ctx, userId, models.WithdrawalSK(requestId),
		models.WithdrawalStatusGSI1PK(models.RequestRejected), notes, processedAt)
}

func (r *fundingRepo) RejectRecharge(ctx context.Context, userId, requestId, notes string, processedAt time.Time) error {
	return r.rejectRequest(ctx, userId, models.RechargeSK(requestId),
		models.RechargeStatusGSI1PK(models.RequestRejected), notes, processedAt)
}

// rejectRequest flips pending -> rejected exactly once. The condition keeps
// a request from being processed twice.
func (r *fundingRepo) rejectRequest(ctx context.Context, userId, sk, rejectedGSI1PK, notes string, processedAt time.Time) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET #status = :rejected, processed_at = :at, admin_notes = :notes, GSI1PK = :gsi1pk"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rejected": &types.AttributeValueMemberS{Value: string(models.RequestRejected)},
			":pending":  &types.AttributeValueMemberS{Value: string(models.RequestPending)},
			":at":       &types.AttributeValueMemberS{Value: processedAt.UTC().Format(time.RFC3339)},
			":notes":    &types.AttributeValueMemberS{Value: notes},
			":gsi1pk":   &types.AttributeValueMemberS{Value: rejectedGSI1PK},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :pending"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to reject funding request")
	}

	return nil
}
