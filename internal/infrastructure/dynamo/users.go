package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tiffin-tracker/internal/domain"
)

// UserRepo stores user documents in the users table and keeps the live
// reminder tokens of every user in the tokens table, keyed by token.
type UserRepo struct {
	client      API
	usersTable  string
	tokensTable string
}

func NewUserRepo(client API, usersTable, tokensTable string) *UserRepo {
	return &UserRepo{client: client, usersTable: usersTable, tokensTable: tokensTable}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.usersTable),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Save writes u if the stored version still equals prevVersion and applies
// change to the tokens table in the same transaction.
func (r *UserRepo) Save(ctx context.Context, u *domain.User, prevVersion int64, change domain.TokenChange) error {
	in, err := r.saveInput(u, prevVersion, change)
	if err != nil {
		return err
	}
	if _, err := r.client.TransactWriteItems(ctx, in); err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("save user %s: %w", u.UserID, domain.ErrConflict)
		}
		return fmt.Errorf("save user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *UserRepo) saveInput(u *domain.User, prevVersion int64, change domain.TokenChange) (*dynamodb.TransactWriteItemsInput, error) {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}

	cond := "attribute_exists(#uid) AND #v = :prev"
	if prevVersion == 0 {
		// Documents created outside this service start without a version.
		cond = "attribute_exists(#uid) AND (attribute_not_exists(#v) OR #v = :prev)"
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                aws.String(r.usersTable),
			Item:                     item,
			ConditionExpression:      aws.String(cond),
			ExpressionAttributeNames: map[string]string{"#uid": fieldUserID, "#v": fieldVersion},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prev": numAttr(strconv.FormatInt(prevVersion, 10)),
			},
		},
	}}

	for _, ref := range change.Added {
		row, err := attributevalue.MarshalMap(ref)
		if err != nil {
			return nil, fmt.Errorf("marshal token: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(r.tokensTable),
				Item:                     row,
				ConditionExpression:      aws.String("attribute_not_exists(#t)"),
				ExpressionAttributeNames: map[string]string{"#t": fieldToken},
			},
		})
	}
	for _, tok := range change.Removed {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tokensTable),
				Key:       strKey(fieldToken, tok),
			},
		})
	}
	return &dynamodb.TransactWriteItemsInput{TransactItems: items}, nil
}

func (r *UserRepo) OwnerOfToken(ctx context.Context, token string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tokensTable),
		Key:            strKey(fieldToken, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("token: %w", domain.ErrNotFound)
	}
	var ref domain.TokenRef
	if err := attributevalue.UnmarshalMap(out.Item, &ref); err != nil {
		return "", fmt.Errorf("unmarshal token: %w", err)
	}
	return ref.UserID, nil
}

// ListEligible scans for users the scheduler should look at. History is not
// projected; callers that need it read the full document.
func (r *UserRepo) ListEligible(ctx context.Context) ([]domain.User, error) {
	p := dynamodb.NewScanPaginator(r.client, eligibleScanInput(r.usersTable))
	var users []domain.User
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan eligible users: %w", err)
		}
		var batch []domain.User
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal users: %w", err)
		}
		for _, u := range batch {
			if u.Eligible() {
				users = append(users, u)
			}
		}
	}
	return users, nil
}

func eligibleScanInput(table string) *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		TableName: aws.String(table),
		FilterExpression: aws.String(
			"#ver = :true AND attribute_exists(#sub) AND size(#st.#tz) > :zero AND size(#st.#times) > :zero",
		),
		ProjectionExpression: aws.String("#uid, #name, #ver, #sub, #st, #v"),
		ExpressionAttributeNames: map[string]string{
			"#uid":   fieldUserID,
			"#name":  fieldName,
			"#ver":   fieldVerified,
			"#sub":   fieldPushSubscription,
			"#st":    fieldSettings,
			"#tz":    fieldTimezone,
			"#times": fieldNotificationTimes,
			"#v":     fieldVersion,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":zero": numAttr("0"),
		},
	}
}
