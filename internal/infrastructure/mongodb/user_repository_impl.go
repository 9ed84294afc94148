package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	"github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
)

const UsersCollection = "users"

// userDocument is the stored shape of entity.User.
type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password,omitempty"`
	Roles     []string      `bson:"roles"`
	Firstname string        `bson:"firstname,omitempty"`
	Lastname  string        `bson:"lastname,omitempty"`
	Created   time.Time     `bson:"created"`
	Active    bool          `bson:"active"`
	Verified  bool          `bson:"verified"`
}

// withoutPassword is applied to every read.
var withoutPassword = bson.D{{Key: "password", Value: 0}}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique email index that Insert relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("ensure users email index: %w", err)
	}
	return nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetProjection(withoutPassword))
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(docs))
	for i := range docs {
		out = append(out, fromDocument(&docs[i]))
	}
	return out, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*entity.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(withoutPassword)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return fromDocument(&doc), nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	doc := toDocument(u)
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translateWriteErr(err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	oid, err := bson.ObjectIDFromHex(u.ID)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: updateSet(u)}})
	if err != nil {
		return translateWriteErr(err)
	}
	return matchedOrNotFound(res)
}

// updateSet lists the fields an update writes. An empty password keeps the stored one.
func updateSet(u *entity.User) bson.D {
	set := bson.D{
		{Key: "email", Value: u.Email},
		{Key: "roles", Value: rolesOrEmpty(u.Roles)},
		{Key: "firstname", Value: u.Firstname},
		{Key: "lastname", Value: u.Lastname},
		{Key: "created", Value: u.Created},
		{Key: "active", Value: u.Active},
		{Key: "verified", Value: u.Verified},
	}
	if u.Password != "" {
		set = append(set, bson.E{Key: "password", Value: u.Password})
	}
	return set
}

func matchedOrNotFound(res *mongo.UpdateResult) error {
	if res == nil || res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	return err
}

func translateWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateEmail
	}
	return err
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

func toDocument(u *entity.User) *userDocument {
	return &userDocument{
		Email:     u.Email,
		Password:  u.Password,
		Roles:     rolesOrEmpty(u.Roles),
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Created:   u.Created,
		Active:    u.Active,
		Verified:  u.Verified,
	}
}

func fromDocument(d *userDocument) *entity.User {
	return &entity.User{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Roles:     rolesOrEmpty(d.Roles),
		Firstname: d.Firstname,
		Lastname:  d.Lastname,
		Created:   d.Created,
		Active:    d.Active,
		Verified:  d.Verified,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)
