package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramadhanidw/messenger-be/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant")
	ErrUserNotFound         = errors.New("user not found")
)

// ChatStore is the persistence collaborator: conversations, messages and the
// atomic read-mark live here. Handlers never touch gorm directly.
type ChatStore struct {
	DB *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{DB: db}
}

// ListConversations returns every direct conversation the user belongs to,
// messages preloaded ascending by creation time, both participants attached.
// Ordered newest-activity-first for the sidebar.
func (s *ChatStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("group_id IS NULL AND (user1_id = ? OR user2_id = ?)", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// FindConversation looks up the pair symmetrically. Returns
// ErrConversationNotFound when the pair has no history yet.
func (s *ChatStore) FindConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Where("group_id IS NULL AND ((user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?))", a, b, b, a).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreateConversation returns the pair's conversation, creating it on
// first contact. The created flag tells the caller to attach sender info to
// the push event so the recipient can build the conversation client-side.
func (s *ChatStore) FindOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, bool, error) {
	conv, err := s.FindConversation(ctx, a, b)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, false, err
	}

	created := &models.Conversation{User1ID: a, User2ID: b, LastMessageAt: time.Now()}
	if err := s.DB.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// GetConversation fetches one conversation by id.
func (s *ChatStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateMessage inserts the message and bumps the conversation's activity
// timestamp.
func (s *ChatStore) CreateMessage(ctx context.Context, convID, senderID uuid.UUID, text string) (*models.Message, error) {
	msg := &models.Message{ConversationID: convID, SenderID: senderID, Text: text}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}

	_ = s.DB.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", convID).
		Update("last_message_at", msg.CreatedAt).Error

	return msg, nil
}

// BulkMarkRead stamps readAt onto every unread message addressed to
// readerID in one UPDATE. A single statement keyed on the unread predicate
// keeps concurrent readers race-free and never overwrites a timestamp that
// is already set, so the contiguous-unread invariant is preserved without a
// read-then-write loop.
func (s *ChatStore) BulkMarkRead(ctx context.Context, convID, readerID uuid.UUID, readAt time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", convID, readerID).
		Update("read_at", readAt).Error
}

// GetUser fetches a user by id.
func (s *ChatStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername is the login lookup.
func (s *ChatStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new account.
func (s *ChatStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Create(user).Error
}

// SearchUsers finds users whose username contains query, excluding self.
// Feeds the sidebar search that produces ephemeral conversations.
func (s *ChatStore) SearchUsers(ctx context.Context, selfID uuid.UUID, query string) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Where("id <> ? AND username ILIKE ?", selfID, "%"+query+"%").
		Order("username ASC").
		Limit(20).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
