package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"flipball-backend/internal/config"
	"flipball-backend/internal/models"
)

const (
	collectionAccounts     = "users"
	collectionTransactions = "transactions"

	mongoCloseTimeout = 5 * time.Second
)

// accountDocument mirrors the stored shape. Amounts are doubles so documents
// written by earlier versions of the service still decode.
type accountDocument struct {
	AccountID           string    `bson:"accountId,omitempty"`
	Email               string    `bson:"email"`
	FirstName           string    `bson:"firstname"`
	LastName            string    `bson:"lastname"`
	Password            string    `bson:"password"`
	Balance             float64   `bson:"balance"`
	Attempts            int64     `bson:"attempts"`
	TotalAttemptsPlayed int64     `bson:"totalAttemptsPlayed"`
	Revision            int64     `bson:"revision"`
	CreatedAt           time.Time `bson:"createdAt"`
	UpdatedAt           time.Time `bson:"updatedAt"`
}

func newAccountDocument(acc *models.Account) accountDocument {
	return accountDocument{
		AccountID:           acc.ID,
		Email:               acc.Email,
		FirstName:           acc.FirstName,
		LastName:            acc.LastName,
		Password:            acc.Password,
		Balance:             acc.Balance.InexactFloat64(),
		Attempts:            acc.Attempts,
		TotalAttemptsPlayed: acc.TotalAttemptsPlayed,
		CreatedAt:           acc.CreatedAt,
		UpdatedAt:           acc.UpdatedAt,
	}
}

func (d accountDocument) toModel() *models.Account {
	return &models.Account{
		ID:                  d.AccountID,
		Email:               d.Email,
		FirstName:           d.FirstName,
		LastName:            d.LastName,
		Password:            d.Password,
		Balance:             decimal.NewFromFloat(d.Balance),
		Attempts:            d.Attempts,
		TotalAttemptsPlayed: d.TotalAttemptsPlayed,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type transactionDocument struct {
	TransactionID string    `bson:"_id"`
	Email         string    `bson:"email"`
	Type          string    `bson:"type"`
	Amount        float64   `bson:"amount"`
	BalanceBefore float64   `bson:"balanceBefore"`
	BalanceAfter  float64   `bson:"balanceAfter"`
	AttemptNumber int64     `bson:"attemptNumber,omitempty"`
	Description   string    `bson:"description"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func (d transactionDocument) toModel() *models.Transaction {
	return &models.Transaction{
		ID:            d.TransactionID,
		Email:         d.Email,
		Type:          models.TransactionType(d.Type),
		Amount:        decimal.NewFromFloat(d.Amount),
		BalanceBefore: decimal.NewFromFloat(d.BalanceBefore),
		BalanceAfter:  decimal.NewFromFloat(d.BalanceAfter),
		AttemptNumber: d.AttemptNumber,
		Description:   d.Description,
		CreatedAt:     d.CreatedAt,
	}
}

type MongoService struct {
	client       *mongo.Client
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

func NewMongoService(ctx context.Context, cfg *config.Config) (*MongoService, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := NewMongoServiceFromDatabase(client.Database(cfg.MongoDatabase))

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func NewMongoServiceFromDatabase(db *mongo.Database) *MongoService {
	return &MongoService{
		client:       db.Client(),
		accounts:     db.Collection(collectionAccounts),
		transactions: db.Collection(collectionTransactions),
	}
}

func (s *MongoService) ensureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}

	_, err = s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create transaction index: %w", err)
	}

	return nil
}

func (s *MongoService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoService) CreateAccount(ctx context.Context, acc *models.Account) error {
	_, err := s.accounts.InsertOne(ctx, newAccountDocument(acc))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return storageError("create account", err)
	}
	return nil
}

func (s *MongoService) findAccount(ctx context.Context, email string) (*accountDocument, error) {
	var doc accountDocument
	err := s.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, storageError("get account", err)
	}
	return &doc, nil
}

func (s *MongoService) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	doc, err := s.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// UpdateLedger writes only if the revision read is still current; a
// concurrent writer bumps it and the loop re-reads.
func (s *MongoService) UpdateLedger(ctx context.Context, email string, mutate LedgerMutation) (*models.Account, error) {
	for i := 0; i < maxLedgerRetries; i++ {
		doc, err := s.findAccount(ctx, email)
		if err != nil {
			return nil, err
		}

		acc := doc.toModel()
		if err := mutate(acc); err != nil {
			return nil, err
		}
		acc.UpdatedAt = time.Now().UTC()

		res, err := s.accounts.UpdateOne(ctx, revisionFilter(email, doc.Revision), bson.M{
			"$set": bson.M{
				"balance":             acc.Balance.InexactFloat64(),
				"attempts":            acc.Attempts,
				"totalAttemptsPlayed": acc.TotalAttemptsPlayed,
				"revision":            doc.Revision + 1,
				"updatedAt":           acc.UpdatedAt,
			},
		})
		if err != nil {
			return nil, storageError("update ledger", err)
		}
		if res.MatchedCount == 1 {
			return acc, nil
		}
		if err := waitLedgerRetry(ctx, i); err != nil {
			return nil, storageError("update ledger", err)
		}
	}

	return nil, storageError("update ledger", ErrLedgerConflict)
}

// revisionFilter also matches documents that predate the revision field.
func revisionFilter(email string, revision int64) bson.M {
	if revision == 0 {
		return bson.M{
			"email": email,
			"$or": bson.A{
				bson.M{"revision": 0},
				bson.M{"revision": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"email": email, "revision": revision}
}

func (s *MongoService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.transactions.InsertOne(ctx, transactionDocument{
		TransactionID: tx.ID,
		Email:         tx.Email,
		Type:          string(tx.Type),
		Amount:        tx.Amount.InexactFloat64(),
		BalanceBefore: tx.BalanceBefore.InexactFloat64(),
		BalanceAfter:  tx.BalanceAfter.InexactFloat64(),
		AttemptNumber: tx.AttemptNumber,
		Description:   tx.Description,
		CreatedAt:     tx.CreatedAt,
	})
	if err != nil {
		return storageError("save transaction", err)
	}
	return nil
}

func (s *MongoService) GetTransactions(ctx context.Context, email string, limit int64) ([]*models.Transaction, error) {
	limit = models.ClampHistoryLimit(limit)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.transactions.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageError("decode transactions", err)
	}

	transactions := make([]*models.Transaction, 0, len(docs))
	for _, doc := range docs {
		transactions = append(transactions, doc.toModel())
	}
	return transactions, nil
}
