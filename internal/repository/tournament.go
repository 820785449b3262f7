package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/proarena/arena/internal/database"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetById(ctx context.Context, tournamentId string) (*models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error)
	ListStartedBefore(ctx context.Context, status models.TournamentStatus, cutoff time.Time) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	Delete(ctx context.Context, tournamentId string) error
	TransitionStatus(ctx context.Context, tournamentId string, from, to models.TournamentStatus, at time.Time) (bool, error)
	StampStatusUpdatedAt(ctx context.Context, tournamentId string, at time.Time) (bool, error)
	SetResult(ctx context.Context, tournamentId, resultImageURL, resultText string) error
	Reject(ctx context.Context, tournamentId, reason string, at time.Time) (bool, error)
	ListParticipants(ctx context.Context, tournamentId string) ([]models.Participant, error)
	RemoveParticipant(ctx context.Context, tournamentId, userId, username string) error
}

type tournamentRepo struct {
	db *database.DynamoDBClient
}

func NewTournamentRepository(db *database.DynamoDBClient) TournamentRepository {
	return &tournamentRepo{db: db}
}

func (r *tournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	tournament.PK = models.TournamentPK(tournament.TournamentId)
	tournament.SK = models.MetaSK()
	tournament.GSI1PK = models.StatusGSI1PK(tournament.Status)
	tournament.GSI1SK = models.StartTimeGSI1SK(tournament.StartsAt)
	tournament.CreatedAt = time.Now().UTC()
	tournament.UpdatedAt = tournament.CreatedAt

	item, err := attributevalue.MarshalMap(tournament)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeAlreadyExists, "tournament already exists")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to create tournament")
	}

	return nil
}

func (r *tournamentRepo) GetById(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to get tournament")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}

	var tournament models.Tournament
	if err := attributevalue.UnmarshalMap(result.Item, &tournament); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tournament: %w", err)
	}

	return &tournament, nil
}

func (r *tournamentRepo) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	return r.queryStatus(ctx, status, nil)
}

// ListStartedBefore returns tournaments in the given status whose scheduled
// start is at or before cutoff. The GSI sort key encodes the start time, so
// this is a plain range query.
func (r *tournamentRepo) ListStartedBefore(ctx context.Context, status models.TournamentStatus, cutoff time.Time) ([]models.Tournament, error) {
	upper := models.StartTimeGSI1SK(cutoff)
	return r.queryStatus(ctx, status, &upper)
}

func (r *tournamentRepo) queryStatus(ctx context.Context, status models.TournamentStatus, upperSK *string) ([]models.Tournament, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :status"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: models.StatusGSI1PK(status)},
		},
	}
	if upperSK != nil {
		input.KeyConditionExpression = aws.String("GSI1PK = :status AND GSI1SK <= :upper")
		input.ExpressionAttributeValues[":upper"] = &types.AttributeValueMemberS{Value: *upperSK}
	}

	tournaments := make([]models.Tournament, 0)
	paginator := dynamodb.NewQueryPaginator(r.db.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to query tournaments")
		}

		var batch []models.Tournament
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tournaments: %w", err)
		}
		tournaments = append(tournaments, batch...)
	}

	return tournaments, nil
}

// Update writes only the admin-editable fields. Status, the status GSI
// partition and the participant counter are owned by the status engine
// and the join transaction; a whole-item put here could silently undo
// their concurrent writes.
func (r *tournamentRepo) Update(ctx context.Context, tournament *models.Tournament) error {
	tournament.UpdatedAt = time.Now().UTC()

	startsAt, err := attributevalue.Marshal(tournament.StartsAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to marshal start time: %w", err)
	}
	updatedAt, err := attributevalue.Marshal(tournament.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to marshal update time: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournament.TournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET #name = :name, game_type = :game, starts_at = :starts, entry_fee = :fee, prize_pool = :prize, per_kill_bonus = :bonus, max_participants = :cap, match_details = :details, #rules = :rules, GSI1SK = :gsi1sk, updated_at = :at"),
		ExpressionAttributeNames: map[string]string{
			"#name":  "name",
			"#rules": "rules",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":    &types.AttributeValueMemberS{Value: tournament.Name},
			":game":    &types.AttributeValueMemberS{Value: string(tournament.GameType)},
			":starts":  startsAt,
			":fee":     &types.AttributeValueMemberN{Value: strconv.FormatInt(tournament.EntryFee, 10)},
			":prize":   &types.AttributeValueMemberN{Value: strconv.FormatInt(tournament.PrizePool, 10)},
			":bonus":   &types.AttributeValueMemberN{Value: strconv.FormatInt(tournament.PerKillBonus, 10)},
			":cap":     &types.AttributeValueMemberN{Value: strconv.Itoa(tournament.MaxParticipants)},
			":details": &types.AttributeValueMemberS{Value: tournament.MatchDetails},
			":rules":   &types.AttributeValueMemberS{Value: tournament.Rules},
			":gsi1sk":  &types.AttributeValueMemberS{Value: models.StartTimeGSI1SK(tournament.StartsAt)},
			":at":      updatedAt,
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeNotFound, "tournament not found")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to update tournament")
	}

	return nil
}

// Delete removes the META item and every child item (participants, username
// claims, audit entries) under the tournament's partition.
func (r *tournamentRepo) Delete(ctx context.Context, tournamentId string) error {
	keys, err := r.partitionKeys(ctx, tournamentId)
	if err != nil {
		return err
	}

	const batchSize = 25
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		_, err := r.db.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.db.Table(): writes,
			},
		})
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeTransient, "failed to delete tournament items")
		}
	}

	return nil
}

func (r *tournamentRepo) partitionKeys(ctx context.Context, tournamentId string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	keys := make([]map[string]types.AttributeValue, 0)
	paginator := dynamodb.NewQueryPaginator(r.db.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to list tournament items")
		}
		for _, item := range page.Items {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			})
		}
	}

	return keys, nil
}

// TransitionStatus flips status atomically, conditioned on the expected
// current status. Returns false without error when the condition lost,
// meaning another writer already moved the tournament on.
func (r *tournamentRepo) TransitionStatus(ctx context.Context, tournamentId string, from, to models.TournamentStatus, at time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET #status = :to, status_updated_at = :at, updated_at = :at, GSI1PK = :gsi1pk"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from":   &types.AttributeValueMemberS{Value: string(from)},
			":to":     &types.AttributeValueMemberS{Value: string(to)},
			":at":     &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
			":gsi1pk": &types.AttributeValueMemberS{Value: models.StatusGSI1PK(to)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :from"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, apperrors.CodeTransient, "failed to transition tournament status")
	}

	return true, nil
}

// StampStatusUpdatedAt back-fills the transition timestamp on records that
// predate it. Conditioned on the attribute still being absent, so repeated
// calls are no-ops.
func (r *tournamentRepo) StampStatusUpdatedAt(ctx context.Context, tournamentId string, at time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET status_updated_at = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_not_exists(status_updated_at)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, apperrors.CodeTransient, "failed to stamp status timestamp")
	}

	return true, nil
}

func (r *tournamentRepo) SetResult(ctx context.Context, tournamentId, resultImageURL, resultText string) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET result_image_url = :img, result_text = :txt, updated_at = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":img": &types.AttributeValueMemberS{Value: resultImageURL},
			":txt": &types.AttributeValueMemberS{Value: resultText},
			":at":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return apperrors.New(apperrors.CodeNotFound, "tournament not found")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to set tournament result")
	}

	return nil
}

// Reject moves a pending tournament to rejected and records the reason in
// the same conditional update, so a rejected record always carries its
// reason. Returns false without error when the tournament was no longer
// pending.
func (r *tournamentRepo) Reject(ctx context.Context, tournamentId, reason string, at time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET #status = :to, rejection_reason = :reason, status_updated_at = :at, updated_at = :at, GSI1PK = :gsi1pk"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from":   &types.AttributeValueMemberS{Value: string(models.StatusPending)},
			":to":     &types.AttributeValueMemberS{Value: string(models.StatusRejected)},
			":reason": &types.AttributeValueMemberS{Value: reason},
			":at":     &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
			":gsi1pk": &types.AttributeValueMemberS{Value: models.StatusGSI1PK(models.StatusRejected)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :from"),
	})
	if err != nil {
		if database.IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, apperrors.CodeTransient, "failed to reject tournament")
	}

	return true, nil
}

func (r *tournamentRepo) ListParticipants(ctx context.Context, tournamentId string) ([]models.Participant, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			":prefix": &types.AttributeValueMemberS{Value: "PARTICIPANT#"},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransient, "failed to list participants")
	}

	var participants []models.Participant
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}

	// The sort key is the user id, so restore join order here.
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return participants, nil
}

// RemoveParticipant deletes the participant item, releases the username
// claim, and decrements the counter in one transaction.
func (r *tournamentRepo) RemoveParticipant(ctx context.Context, tournamentId, userId, username string) error {
	tb := database.NewTransactionBuilder()

	if err := tb.AddDelete(types.Delete{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.ParticipantSK(userId)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}

	if err := tb.AddDelete(types.Delete{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.UsernameSK(username)},
		},
	}); err != nil {
		return err
	}

	if err := tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("ADD participant_count :dec"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dec":  &types.AttributeValueMemberN{Value: "-1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND participant_count > :zero"),
	}); err != nil {
		return err
	}

	if err := tb.Execute(ctx, r.db.Client); err != nil {
		if database.CancelledConditionIndex(err) == 0 {
			return apperrors.New(apperrors.CodeNotFound, "participant not found")
		}
		return apperrors.Wrap(err, apperrors.CodeTransient, "failed to remove participant")
	}

	return nil
}
