// Package mongo implements the user and todo repositories on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// DefaultDatabase is used when the URI names no database
const DefaultDatabase = "todoapp"

const (
	usersCollection = "users"
	todosCollection = "todos"
)

// Store implements users.Repository and todos.Repository on MongoDB
type Store struct {
	client *storage.Handle[*mongo.Client]
	dbName string
}

// New creates a store that connects on first use. The database name is taken
// from the URI path.
func New(config storage.Config) (*Store, error) {
	cs, err := connstring.ParseAndValidate(config.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid mongo uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}

	s := &Store{dbName: dbName}
	s.client = storage.NewHandle(s.connector(config))
	return s, nil
}

// NewWithClient wraps a connected client. Indexes are not created.
func NewWithClient(client *mongo.Client, dbName string) *Store {
	return &Store{client: storage.NewReadyHandle(client), dbName: dbName}
}

func (s *Store) connector(config storage.Config) storage.ConnectFunc[*mongo.Client] {
	return func(ctx context.Context) (*mongo.Client, error) {
		timeout := config.MongoConnectTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}

		opts := options.Client().
			ApplyURI(config.MongoURI).
			SetConnectTimeout(timeout).
			SetServerSelectionTimeout(timeout)

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}

		if err := ensureIndexes(ctx, client.Database(s.dbName)); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return client, nil
	}
}

// ensureIndexes creates the unique identity indexes and the owner listing index
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(todosCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create todo indexes: %w", err)
	}
	return nil
}

func (s *Store) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(s.dbName).Collection(name), nil
}

// Ready connects if needed
func (s *Store) Ready(ctx context.Context) error {
	_, err := s.client.Get(ctx)
	return err
}

// Ping checks the primary round trip
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	return translate(client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client
func (s *Store) Close() error {
	return s.client.Reset(func(c *mongo.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.Disconnect(ctx)
	})
}

// translate maps driver errors onto the storage sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	}

	var selErr topology.ServerSelectionError
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.As(err, &selErr) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Fullname  string             `bson:"fullname"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Password  string             `bson:"password,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDoc) user() *users.User {
	return &users.User{
		ID:           d.ID.Hex(),
		Fullname:     d.Fullname,
		Email:        d.Email,
		Phone:        d.Phone,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type todoDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	User        primitive.ObjectID `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *todoDoc) todo() *todos.Todo {
	return &todos.Todo{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      todos.Status(d.Status),
		UserID:      d.User.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Store) findUser(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*users.User, error) {
	coll, err := s.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.user(), nil
}

// CreateUser inserts u and sets its ID
func (s *Store) CreateUser(ctx context.Context, u *users.User) error {
	coll, err := s.collection(ctx, usersCollection)
	if err != nil {
		return err
	}

	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Fullname:  u.Fullname,
		Email:     u.Email,
		Phone:     u.Phone,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}

	u.ID = doc.ID.Hex()
	return nil
}

// FindUserByID returns the user without its password hash
func (s *Store) FindUserByID(ctx context.Context, id string) (*users.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"password": 0}))
}

// FindUserByPhone returns the user registered with phone
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*users.User, error) {
	return s.findUser(ctx, bson.M{"phone": phone})
}

// FindUserByEmailOrPhone returns any user holding either value
func (s *Store) FindUserByEmailOrPhone(ctx context.Context, email, phone string) (*users.User, error) {
	return s.findUser(ctx, bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"phone": phone}}})
}

// ownedFilter matches the todo id owned by ownerID. ok is false when either
// id is malformed and so cannot match anything.
func ownedFilter(id, ownerID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": owner}, true
}

// ListTodos returns the owner's todos, newest first
func (s *Store) ListTodos(ctx context.Context, ownerID string) ([]*todos.Todo, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []*todos.Todo{}, nil
	}
	coll, err := s.collection(ctx, todosCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := coll.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, translate(err)
	}

	var docs []todoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}

	result := make([]*todos.Todo, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].todo())
	}
	return result, nil
}

// FindTodo returns the todo with id owned by ownerID
func (s *Store) FindTodo(ctx context.Context, id, ownerID string) (*todos.Todo, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	coll, err := s.collection(ctx, todosCollection)
	if err != nil {
		return nil, err
	}

	var doc todoDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.todo(), nil
}

// InsertTodo stores t and sets its ID
func (s *Store) InsertTodo(ctx context.Context, t *todos.Todo) error {
	owner, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", t.UserID, err)
	}
	coll, err := s.collection(ctx, todosCollection)
	if err != nil {
		return err
	}

	doc := todoDoc{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		User:        owner,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}

	t.ID = doc.ID.Hex()
	return nil
}

// UpdateTodo applies p to the owner's todo and returns the result
func (s *Store) UpdateTodo(ctx context.Context, id, ownerID string, p todos.Patch) (*todos.Todo, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	coll, err := s.collection(ctx, todosCollection)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}

	var doc todoDoc
	err = coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.todo(), nil
}

// DeleteTodo removes the owner's todo
func (s *Store) DeleteTodo(ctx context.Context, id, ownerID string) error {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return storage.ErrNotFound
	}
	coll, err := s.collection(ctx, todosCollection)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
