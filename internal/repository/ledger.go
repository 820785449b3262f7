package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/proarena/arena/internal/database"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

// LedgerRepository executes every funds-moving write as one DynamoDB
// transaction, so a balance never changes without its paired cause and the
// read-then-write races of a naive implementation cannot occur.
type LedgerRepository interface {
	// Join debits the entry fee and appends the participant atomically.
	Join(ctx context.Context, tournament *models.Tournament, participant *models.Participant) error
	// ApproveWithdrawal debits exactly `debit`, conditioned on the balance
	// still being `observedBalance`. Returns a conflict error when the
	// balance moved; callers re-read and retry.
	ApproveWithdrawal(ctx context.Context, userId, requestId string, debit, observedBalance int64, notes string, processedAt time.Time) error
	ApproveRecharge(ctx context.Context, userId, requestId string, amount int64, notes string, processedAt time.Time) error
	// GrantReward credits the recipient and writes the immutable reward
	// record, conditioned on the observed previous balance.
	GrantReward(ctx context.Context, reward *models.RewardRecord) error
}

type ledgerRepo struct {
	db *database.DynamoDBClient
}

func NewLedgerRepository(db *database.DynamoDBClient) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Join(ctx context.Context, tournament *models.Tournament, participant *models.Participant) error {
	participant.PK = models.TournamentPK(tournament.TournamentId)
	participant.SK = models.ParticipantSK(participant.UserId)

	participantItem, err := attributevalue.MarshalMap(participant)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	tb := database.NewTransactionBuilder()

	// Item 0: at-most-once join per user.
	if err := tb.AddPut(types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                participantItem,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	}); err != nil {
		return err
	}

	// Item 1: case-insensitive username claim within the tournament.
	if err := tb.AddPut(types.Put{
		TableName: aws.String(r.db.Table()),
		Item: map[string]types.AttributeValue{
			"PK":       &types.AttributeValueMemberS{Value: models.TournamentPK(tournament.TournamentId)},
			"SK":       &types.AttributeValueMemberS{Value: models.UsernameSK(participant.Username)},
			"user_id":  &types.AttributeValueMemberS{Value: participant.UserId},
			"username": &types.AttributeValueMemberS{Value: participant.Username},
		},
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	}); err != nil {
		return err
	}

	// Item 2: capacity and openness on the tournament itself.
	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournament.TournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("ADD participant_count :one"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":      &types.AttributeValueMemberN{Value: "1"},
			":max":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", tournament.MaxParticipants)},
			":upcoming": &types.AttributeValueMemberS{Value: string(models.StatusUpcoming)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :upcoming AND participant_count < :max"),
	}); err != nil {
		return err
	}

	// Item 3: entry fee debit, guarded against going negative.
	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(participant.UserId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		UpdateExpression: aws.String(
			"SET wallet_balance = wallet_balance - :fee, " +
				"joined_tournaments = list_append(if_not_exists(joined_tournaments, :empty), :tid)",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fee":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", tournament.EntryFee)},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":tid": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: tournament.TournamentId},
			}},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND wallet_balance >= :fee"),
	}); err != nil {
		return err
	}

	if err := tb.Execute(ctx, r.db.Client); err != nil {
		switch database.CancelledConditionIndex(err) {
		case 0:
			return apperrors.New(apperrors.CodeAlreadyJoined, "you already joined this tournament")
		case 1:
			return apperrors.New(apperrors.CodeUsernameTaken, "username already taken in this tournament")
		case 2:
			return apperrors.New(apperrors.CodeTournamentFull, "tournament is full or no longer open")
		case 3:
			return apperrors.New(apperrors.CodeInsufficientBalance, "insufficient wallet balance")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to join tournament")
	}

	return nil
}

func (r *ledgerRepo) ApproveWithdrawal(ctx context.Context, userId, requestId string, debit, observedBalance int64, notes string, processedAt time.Time) error {
	tb := database.NewTransactionBuilder()

	// Item 0: debit against the exact balance we computed the floor from.
	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		UpdateExpression: aws.String("SET wallet_balance = wallet_balance - :debit"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":debit":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", debit)},
			":observed": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", observedBalance)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND wallet_balance = :observed"),
	}); err != nil {
		return err
	}

	// Item 1: request approval, exactly once.
	if err := tb.AddUpdate(r.approveRequestUpdate(
		userId,
		models.WithdrawalSK(requestId),
		models.WithdrawalStatusGSI1PK(models.RequestApproved),
		notes,
		processedAt,
	)); err != nil {
		return err
	}

	if err := tb.Execute(ctx, r.db.Client); err != nil {
		switch database.CancelledConditionIndex(err) {
		case 0:
			return apperrors.New(apperrors.CodeConflict, "wallet balance changed, retry")
		case 1:
			return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to approve withdrawal")
	}

	return nil
}

func (r *ledgerRepo) ApproveRecharge(ctx context.Context, userId, requestId string, amount int64, notes string, processedAt time.Time) error {
	tb := database.NewTransactionBuilder()

	// Item 0: credit is a plain atomic increment; no conflict possible.
	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		UpdateExpression: aws.String("ADD wallet_balance :amount"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", amount)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}

	// Item 1: request approval, exactly once.
	if err := tb.AddUpdate(r.approveRequestUpdate(
		userId,
		models.RechargeSK(requestId),
		models.RechargeStatusGSI1PK(models.RequestApproved),
		notes,
		processedAt,
	)); err != nil {
		return err
	}

	if err := tb.Execute(ctx, r.db.Client); err != nil {
		switch database.CancelledConditionIndex(err) {
		case 0:
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		case 1:
			return apperrors.New(apperrors.CodeRequestProcessed, "request already processed")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to approve recharge")
	}

	return nil
}

func (r *ledgerRepo) GrantReward(ctx context.Context, reward *models.RewardRecord) error {
	reward.PK = models.UserPK(reward.UserId)
	reward.SK = models.RewardSK(reward.GrantedAt, reward.RewardId)

	rewardItem, err := attributevalue.MarshalMap(reward)
	if err != nil {
		return fmt.Errorf("failed to marshal reward record: %w", err)
	}

	tb := database.NewTransactionBuilder()

	// Item 0: credit conditioned on the snapshot the record was built from,
	// so previous_balance/new_balance in the ledger entry are exact.
	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(reward.UserId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		UpdateExpression: aws.String("SET wallet_balance = :new"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", reward.NewBalance)},
			":prev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", reward.PreviousBalance)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND wallet_balance = :prev"),
	}); err != nil {
		return err
	}

	// Item 1: the append-only ledger record.
	if err := tb.AddPut(types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                rewardItem,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	}); err != nil {
		return err
	}

	if err := tb.Execute(ctx, r.db.Client); err != nil {
		if database.CancelledConditionIndex(err) == 0 {
			return apperrors.New(apperrors.CodeConflict, "wallet balance changed, retry")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to grant reward")
	}

	return nil
}

func (r *ledgerRepo) approveRequestUpdate(userId, sk, approvedGSI1PK, notes string, processedAt time.Time) types.Update {
	return types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET #status = :approved, processed_at = :at, admin_notes = :notes, GSI1PK = :gsi1pk"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":approved": &types.AttributeValueMemberS{Value: string(models.RequestApproved)},
			":pending":  &types.AttributeValueMemberS{Value: string(models.RequestPending)},
			":at":       &types.AttributeValueMemberS{Value: processedAt.UTC().Format(time.RFC3339)},
			":notes":    &types.AttributeValueMemberS{Value: notes},
			":gsi1pk":   &types.AttributeValueMemberS{Value: approvedGSI1PK},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :pending"),
	}
}
