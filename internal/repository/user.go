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

// UserRepository persists user profiles. It deliberately has no balance
// setter: every balance mutation goes through LedgerRepository so it is
// always paired with its cause.
type UserRepository interface {
	EnsureUser(ctx context.Context, userId, email string) (*models.User, error)
	GetById(ctx context.Context, userId string) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, userId string, role models.Role) error
	Delete(ctx context.Context, userId string) error
}

type userRepo struct {
	db *database.DynamoDBClient
}

func NewUserRepository(db *database.DynamoDBClient) UserRepository {
	return &userRepo{db: db}
}

// EnsureUser creates the profile on first sign-in with a zero balance, or
// stamps last_login_at on subsequent sign-ins.
func (r *userRepo) EnsureUser(ctx context.Context, userId, email string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		UserId:        userId,
		Email:         email,
		Role:          models.RoleUser,
		WalletBalance: 0,
		CreatedAt:     now,
		LastLoginAt:   now,
		PK:            models.UserPK(userId),
		SK:            models.ProfileSK(),
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err == nil {
		return user, nil
	}
	if !database.IsConditionalCheckFailed(err) {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to create user")
	}

	// Existing profile: refresh login time and return it.
	result, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       userKey(userId),
		UpdateExpression: aws.String("SET last_login_at = :now, email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":email": &types.AttributeValueMemberS{Value: email},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to refresh user login")
	}

	var existing models.User
	if err := attributevalue.UnmarshalMap(result.Attributes, &existing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &existing, nil
}

func (r *userRepo) GetById(ctx context.Context, userId string) (*models.User, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       userKey(userId),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to get user")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &user, nil
}

func (r *userRepo) ListAll(ctx context.Context) ([]models.User, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.db.Table()),
		FilterExpression: aws.String("SK = :profile"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":profile": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
	}

	users := make([]models.User, 0)
	paginator := dynamodb.NewScanPaginator(r.db.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to scan users")
		}

		var batch []models.User
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal users: %w", err)
		}
		users = append(users, batch...)
	}

	return users, nil
}

func (r *userRepo) SetRole(ctx context.Context, userId string, role models.Role) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       userKey(userId),
		UpdateExpression: aws.String("SET #role = :role"),
		ExpressionAttributeNames: map[string]string{
			"#role": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": &types.AttributeValueMemberS{Value: string(role)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to set user role")
	}

	return nil
}

// Delete removes the profile item only. Tournament participation records
// and processed funding requests are kept for history.
func (r *userRepo) Delete(ctx context.Context, userId string) error {
	_, err := r.db.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       userKey(userId),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to delete user")
	}
	return nil
}

func userKey(userId string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
		"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
	}
}
