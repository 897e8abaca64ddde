package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatsCollection = "chats"

// MongoChats stores one document per (complaint_id, chat_type)
type MongoChats struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewMongoChats binds the chats collection
func NewMongoChats(db *mongo.Database) *MongoChats {
	return &MongoChats{db: db, coll: db.Collection(chatsCollection)}
}

// EnsureIndexes creates the unique (complaint_id, chat_type) index
func (m *MongoChats) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "complaint_id", Value: 1}, {Key: "chat_type", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("complaint_chat_type_unique"),
	})
	if err != nil {
		return fmt.Errorf("create chat index: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes
func (m *MongoChats) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

func chatFilter(complaintID string, chatType models.ChatType) bson.M {
	return bson.M{"complaint_id": complaintID, "chat_type": chatType}
}

// EnsureChat upserts with $setOnInsert so an existing room is never touched
func (m *MongoChats) EnsureChat(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	id := primitive.NewObjectID()
	participants := chat.Participants
	if participants == nil {
		participants = []models.Participant{}
	}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          id,
		"participants": participants,
		"messages":     []models.ChatMessage{},
		"status":       models.ChatStatusActive,
		"created_at":   chat.CreatedAt,
		"updated_at":   chat.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Chat
	err := m.coll.FindOneAndUpdate(ctx, chatFilter(chat.ComplaintID, chat.ChatType), update, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert inserted first; the room exists now
		err = m.coll.FindOne(ctx, chatFilter(chat.ComplaintID, chat.ChatType)).Decode(&out)
	}
	if err != nil {
		return nil, false, fmt.Errorf("ensure chat: %w", err)
	}
	return &out, out.ID == id, nil
}

// GetChat loads a room
func (m *MongoChats) GetChat(ctx context.Context, complaintID string, chatType models.ChatType) (*models.Chat, error) {
	var out models.Chat
	err := m.coll.FindOne(ctx, chatFilter(complaintID, chatType)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &out, nil
}

// AddParticipant pushes p unless a participant with the same id is present
func (m *MongoChats) AddParticipant(ctx context.Context, complaintID string, chatType models.ChatType, p models.Participant) error {
	filter := chatFilter(complaintID, chatType)
	filter["participants.participant_id"] = bson.M{"$ne": p.ParticipantID}

	_, err := m.coll.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"participants": p},
		"$set":  bson.M{"updated_at": p.JoinedAt},
	})
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// AppendChatMessage pushes msg onto the room's message list
func (m *MongoChats) AppendChatMessage(ctx context.Context, complaintID string, chatType models.ChatType, msg models.ChatMessage) error {
	if msg.IsRead == nil {
		msg.IsRead = []models.ReadReceipt{}
	}
	res, err := m.coll.UpdateOne(ctx, chatFilter(complaintID, chatType), bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updated_at": msg.Timestamp},
	})
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkChatRead adds a receipt to every unread message from someone else
// through a single filtered positional update.
func (m *MongoChats) MarkChatRead(ctx context.Context, complaintID string, chatType models.ChatType, readerID string, at time.Time) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{
			"m.sender_id":       bson.M{"$ne": readerID},
			"m.is_read.user_id": bson.M{"$ne": readerID},
		},
	}})
	res, err := m.coll.UpdateOne(ctx, chatFilter(complaintID, chatType), bson.M{
		"$push": bson.M{"messages.$[m].is_read": models.ReadReceipt{UserID: readerID, ReadAt: at}},
	}, opts)
	if err != nil {
		return fmt.Errorf("mark chat read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchParticipant records when a participant last opened the room
func (m *MongoChats) TouchParticipant(ctx context.Context, complaintID string, chatType models.ChatType, participantID string, at time.Time) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{"p.participant_id": participantID},
	}})
	_, err := m.coll.UpdateOne(ctx, chatFilter(complaintID, chatType), bson.M{
		"$set": bson.M{"participants.$[p].last_seen_at": at},
	}, opts)
	if err != nil {
		return fmt.Errorf("touch participant: %w", err)
	}
	return nil
}
