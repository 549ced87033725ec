package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/markdave123-py/Auditra/internal/models"
)

// MemoryClient is a process-local repository with the same contract as DatabaseClient.
// Records are deep-copied on the way in and out so callers never share state with the store.
type MemoryClient struct {
	mu            sync.RWMutex
	users         map[string]models.User
	documents     map[string]models.Document
	activities    []models.Activity
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
	chunks        []models.DocumentChunk
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		users:         make(map[string]models.User),
		documents:     make(map[string]models.Document),
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func (c *MemoryClient) Close() error { return nil }

func (c *MemoryClient) CreateUser(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("nil user")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.WrapError(models.ErrConflict, "create user", fmt.Errorf("email %s already registered", user.Email))
		}
	}
	c.users[user.ID] = *user
	return nil
}

func (c *MemoryClient) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, models.WrapError(models.ErrNotFound, "get user", fmt.Errorf("email %s", email))
}

func (c *MemoryClient) GetUserByID(_ context.Context, id string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return nil, models.WrapError(models.ErrNotFound, "get user", fmt.Errorf("user %s", id))
	}
	return &u, nil
}

func (c *MemoryClient) UpdateUserProfile(_ context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[user.ID]
	if !ok {
		return models.WrapError(models.ErrNotFound, "update user", fmt.Errorf("user %s", user.ID))
	}
	u.FirstName, u.LastName, u.Jurisdiction = user.FirstName, user.LastName, user.Jurisdiction
	u.UpdatedAt = user.UpdatedAt
	c.users[user.ID] = u
	return nil
}

func (c *MemoryClient) CreateDocument(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.documents[doc.ID]; exists {
		return models.WrapError(models.ErrConflict, "create document", fmt.Errorf("document %s exists", doc.ID))
	}
	c.documents[doc.ID] = copyDocument(*doc)
	return nil
}

func (c *MemoryClient) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.documents[id]
	if !ok {
		return nil, models.WrapError(models.ErrNotFound, "get document", fmt.Errorf("document %s", id))
	}
	out := copyDocument(d)
	return &out, nil
}

func (c *MemoryClient) ListDocumentsByUser(_ context.Context, userID string) ([]models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Document{}
	for _, d := range c.documents {
		if d.UserID == userID {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (c *MemoryClient) ListDocumentsByStatus(_ context.Context, statuses ...models.DocumentStatus) ([]models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Document{}
	for _, d := range c.documents {
		for _, s := range statuses {
			if d.Status == s {
				out = append(out, copyDocument(d))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (c *MemoryClient) TransitionDocument(_ context.Context, id string, from, to models.DocumentStatus, result *models.AnalysisResult) (*models.Document, error) {
	if !from.CanTransitionTo(to) {
		return nil, models.WrapError(models.ErrConflict, "transition document", fmt.Errorf("%s -> %s not allowed", from, to))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.documents[id]
	if !ok {
		return nil, models.WrapError(models.ErrNotFound, "transition document", fmt.Errorf("document %s", id))
	}
	if d.Status != from {
		return nil, models.WrapError(models.ErrConflict, "transition document", fmt.Errorf("%s is %s, not %s", id, d.Status, from))
	}
	d.Status = to
	d.AnalysisResult = copyResult(result)
	d.UpdatedAt = nowUTC()
	c.documents[id] = d
	out := copyDocument(d)
	return &out, nil
}

func (c *MemoryClient) CreateActivity(_ context.Context, a *models.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activities = append(c.activities, *a)
	return nil
}

func (c *MemoryClient) ListActivitiesByUser(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Activity{}
	for i := len(c.activities) - 1; i >= 0; i-- {
		if c.activities[i].UserID == userID {
			out = append(out, c.activities[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *MemoryClient) ListActivitiesByDocument(_ context.Context, documentID string) ([]models.Activity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Activity{}
	for _, a := range c.activities {
		if a.RelatedDocumentID == documentID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *MemoryClient) EnsureActiveConversation(_ context.Context, candidate *models.Conversation) (*models.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.conversations {
		if conv.UserID == candidate.UserID && !conv.Closed {
			out := conv
			return &out, nil
		}
	}
	conv := *candidate
	conv.Closed = false
	c.conversations[conv.ID] = conv
	return &conv, nil
}

func (c *MemoryClient) GetConversationByID(_ context.Context, id string) (*models.Conversation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.conversations[id]
	if !ok {
		return nil, models.WrapError(models.ErrNotFound, "get conversation", fmt.Errorf("conversation %s", id))
	}
	return &conv, nil
}

func (c *MemoryClient) CloseConversation(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.conversations[id]
	if !ok {
		return models.WrapError(models.ErrNotFound, "close conversation", fmt.Errorf("conversation %s", id))
	}
	conv.Closed = true
	c.conversations[id] = conv
	return nil
}

func (c *MemoryClient) CreateMessage(_ context.Context, msg *models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.conversations[msg.ConversationID]
	if !ok {
		return models.WrapError(models.ErrNotFound, "create message", fmt.Errorf("conversation %s", msg.ConversationID))
	}
	m := *msg
	m.ReasoningLog = append([]models.ReasoningStep(nil), msg.ReasoningLog...)
	c.messages[msg.ConversationID] = append(c.messages[msg.ConversationID], m)
	if msg.Timestamp.After(conv.LastMessageAt) {
		conv.LastMessageAt = msg.Timestamp
		c.conversations[conv.ID] = conv
	}
	return nil
}

func (c *MemoryClient) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := append([]models.Message{}, c.messages[conversationID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *MemoryClient) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunks...)
	return nil
}

// SearchUserChunks ranks by euclidean distance, matching pgvector's <-> operator.
func (c *MemoryClient) SearchUserChunks(_ context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	type scored struct {
		chunk models.DocumentChunk
		dist  float64
	}
	var candidates []scored
	for _, ch := range c.chunks {
		if ch.UserID != userID {
			continue
		}
		candidates = append(candidates, scored{chunk: ch, dist: l2(ch.Embedding, queryVec)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.DocumentChunk, 0, len(candidates))
	for _, s := range candidates {
		out = append(out, s.chunk)
	}
	return out, nil
}

func l2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func copyDocument(d models.Document) models.Document {
	d.AnalysisResult = copyResult(d.AnalysisResult)
	return d
}

func copyResult(r *models.AnalysisResult) *models.AnalysisResult {
	if r == nil {
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return r
	}
	var out models.AnalysisResult
	if err := json.Unmarshal(b, &out); err != nil {
		return r
	}
	return out.Normalize()
}
