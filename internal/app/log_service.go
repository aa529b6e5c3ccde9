package app

import (
	"encoding/json"

	"ragchat/internal/model"
	"ragchat/pkg/logger"
)

// LogStore persists the audit trail tables.
type LogStore interface {
	GetOrCreateSession(conversationID, userID uint) (*model.ConversationLogSession, error)
	CreateRound(round *model.ConversationLogRound) error
	UpdateSessionStats(sessionID uint, totalRounds int, hasErrors bool) error
	GetSessionByConversationID(conversationID, userID uint) (*model.ConversationLogSession, error)
	ListRounds(sessionID uint) ([]model.ConversationLogRound, error)
}

// LogService records consumed round-log entries and serves the log read
// API.
type LogService struct {
	repo LogStore
	log  *logger.Logger
}

func NewLogService(repo LogStore, log *logger.Logger) *LogService {
	return &LogService{repo: repo, log: log.Named("round_log")}
}

// Record writes one round into the audit tables. The round number is
// assigned here, at consume time, so ordering follows the queue.
func (s *LogService) Record(entry model.RoundLogEntry) error {
	session, err := s.repo.GetOrCreateSession(entry.ConversationID, entry.UserID)
	if err != nil {
		return err
	}

	roundNumber := session.TotalRounds + 1
	round := &model.ConversationLogRound{
		SessionID:        session.ID,
		RoundNumber:      roundNumber,
		UserMessage:      entry.UserMessage,
		AssistantMessage: entry.AssistantMessage,
		FilesResult:      entry.FilesResult,
		RAGResults:       entry.RAGResults,
		Error:            entry.Error,
		SaveError:        entry.SaveError,
	}
	if err := s.repo.CreateRound(round); err != nil {
		return err
	}

	hasErrors := entry.Error != "" || entry.SaveError != ""
	return s.repo.UpdateSessionStats(session.ID, roundNumber, hasErrors)
}

// ConversationLog is the read view of one conversation's audit trail.
type ConversationLog struct {
	Session model.ConversationLogSession `json:"session"`
	Rounds  []model.ConversationLogRound `json:"rounds"`
}

func (s *LogService) GetConversationLog(userID, conversationID uint) (*ConversationLog, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.repo.GetSessionByConversationID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrConversationNotFound
	}
	rounds, err := s.repo.ListRounds(session.ID)
	if err != nil {
		return nil, err
	}
	return &ConversationLog{Session: *session, Rounds: rounds}, nil
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
