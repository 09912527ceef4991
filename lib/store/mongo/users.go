package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/store"
)

// mongoUser implements a store user in MongoDB.
type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Name      string             `bson:"name,omitempty"`
	Role      string             `bson:"role"`
	Picture   string             `bson:"picture,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// User converts a mongoUser to store.User type.
func (u mongoUser) User() *store.User {
	return &store.User{
		ID: u.ID.Hex(), Email: u.Email, Password: u.Password, Name: u.Name, Role: u.Role, Picture: u.Picture,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (m *Mongo) users() *mgo.Collection {
	return m.db.Collection(entity.Users.Collection())
}

// CreateUser inserts u and sets its ID. Emails are stored in lower case.
func (m *Mongo) CreateUser(ctx context.Context, u *store.User) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := m.users().InsertOne(ctx, mongoUser{
		Email: u.Email, Password: u.Password, Name: u.Name, Role: u.Role, Picture: u.Picture,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return classify(err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id.Hex()
	}

	return nil
}

// FindUser returns the user with the given id.
func (m *Mongo) FindUser(ctx context.Context, id string) (*store.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	return m.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindUserByEmail returns the user registered with email.
func (m *Mongo) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return m.findUser(ctx, bson.D{{Key: "email", Value: strings.ToLower(email)}})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.D) (*store.User, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	var mu mongoUser
	if err := m.users().FindOne(ctx, filter).Decode(&mu); err != nil {
		return nil, classify(err)
	}

	return mu.User(), nil
}

// UpdateUser writes the editable fields of u.
func (m *Mongo) UpdateUser(ctx context.Context, u *store.User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return store.ErrNotFound
	}

	ctx, cancel := m.bound(ctx)
	defer cancel()

	u.Email = strings.ToLower(u.Email)
	u.UpdatedAt = time.Now().UTC()

	res, err := m.users().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "email", Value: u.Email},
			{Key: "password", Value: u.Password},
			{Key: "name", Value: u.Name},
			{Key: "role", Value: u.Role},
			{Key: "picture", Value: u.Picture},
			{Key: "updatedAt", Value: u.UpdatedAt},
		}}})
	if err != nil {
		return classify(err)
	}

	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

// DeleteUser removes the user with the given id.
func (m *Mongo) DeleteUser(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	ctx, cancel := m.bound(ctx)
	defer cancel()

	res, err := m.users().DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return classify(err)
	}

	if res.DeletedCount != 1 {
		return store.ErrNotFound
	}

	return nil
}

// SaveRefreshToken stores t.
func (m *Mongo) SaveRefreshToken(ctx context.Context, t store.RefreshToken) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	_, err := m.db.Collection(refreshTokens).InsertOne(ctx, t)

	return classify(err)
}

// ConsumeRefreshToken removes and returns the refresh token. Expired tokens are not found.
func (m *Mongo) ConsumeRefreshToken(ctx context.Context, email, token string) (*store.RefreshToken, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	var t store.RefreshToken

	err := m.db.Collection(refreshTokens).FindOneAndDelete(ctx, bson.D{
		{Key: "userEmail", Value: strings.ToLower(email)},
		{Key: "token", Value: token},
		{Key: "expires", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}).Decode(&t)
	if err != nil {
		return nil, classify(err)
	}

	return &t, nil
}

// SaveResetToken stores t.
func (m *Mongo) SaveResetToken(ctx context.Context, t store.ResetToken) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	_, err := m.db.Collection(resetTokens).InsertOne(ctx, t)

	return classify(err)
}

// FindResetToken returns the live reset token of email.
func (m *Mongo) FindResetToken(ctx context.Context, email string) (*store.ResetToken, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	var t store.ResetToken

	err := m.db.Collection(resetTokens).FindOne(ctx, bson.D{
		{Key: "userEmail", Value: strings.ToLower(email)},
		{Key: "expires", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}).Decode(&t)
	if err != nil {
		return nil, classify(err)
	}

	return &t, nil
}

// ConsumeResetToken removes and returns the live reset token.
func (m *Mongo) ConsumeResetToken(ctx context.Context, email, token string) (*store.ResetToken, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	var t store.ResetToken

	err := m.db.Collection(resetTokens).FindOneAndDelete(ctx, bson.D{
		{Key: "userEmail", Value: strings.ToLower(email)},
		{Key: "resetToken", Value: token},
		{Key: "expires", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}).Decode(&t)
	if err != nil {
		return nil, classify(err)
	}

	return &t, nil
}

// DeleteTokens removes the refresh and reset tokens of the user.
func (m *Mongo) DeleteTokens(ctx context.Context, userID string) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	for _, coll := range []string{refreshTokens, resetTokens} {
		if _, err := m.db.Collection(coll).DeleteMany(ctx, bson.D{{Key: "userId", Value: userID}}); err != nil {
			return classify(err)
		}
	}

	return nil
}
