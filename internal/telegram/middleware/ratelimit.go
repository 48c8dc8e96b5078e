package middleware

import (
	"sync"
	"time"

	"github.com/futig/rag-chat/internal/telegram/handlers"
	"github.com/futig/rag-chat/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	warningInterval   = 30 * time.Second
	cleanupInterval   = 10 * time.Minute
	inactiveThreshold = time.Hour
)

// userLimit tracks rate limit state for a single user
type userLimit struct {
	tokens        float64
	lastRefill    time.Time
	warningsSent  int
	lastWarningAt time.Time
	mu            sync.Mutex
}

// RateLimiterMiddleware implements token bucket rate limiting per user.
// The bucket holds burst tokens and refills at requestsPerMinute.
type RateLimiterMiddleware struct {
	limits     map[int64]*userLimit
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64 // tokens per second
	now        func() time.Time
	logger     *zap.Logger
	bot        handlers.Sender
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	bot handlers.Sender,
) *RateLimiterMiddleware {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	if burstSize <= 0 {
		burstSize = requestsPerMinute
	}

	rl := &RateLimiterMiddleware{
		limits:     make(map[int64]*userLimit),
		maxTokens:  float64(burstSize),
		refillRate: float64(requestsPerMinute) / 60.0,
		now:        time.Now,
		logger:     logger,
		bot:        bot,
		stop:       make(chan struct{}),
	}

	go rl.cleanupInactiveUsers()

	return rl
}

// Close stops the background cleanup.
func (rl *RateLimiterMiddleware) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		next(update)
		return
	}

	if !rl.allowRequest(msg.From.ID, msg.Chat.ID) {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", msg.From.ID),
			zap.Int64("chat_id", msg.Chat.ID),
		)
		return
	}

	next(update)
}

func (rl *RateLimiterMiddleware) allowRequest(userID, chatID int64) bool {
	now := rl.now()

	rl.mu.Lock()
	limit, exists := rl.limits[userID]
	if !exists {
		limit = &userLimit{
			tokens:     rl.maxTokens,
			lastRefill: now,
		}
		rl.limits[userID] = limit
	}
	rl.mu.Unlock()

	limit.mu.Lock()
	defer limit.mu.Unlock()

	limit.tokens += now.Sub(limit.lastRefill).Seconds() * rl.refillRate
	if limit.tokens > rl.maxTokens {
		limit.tokens = rl.maxTokens
	}
	limit.lastRefill = now

	if limit.tokens >= 1.0 {
		limit.tokens -= 1.0
		limit.warningsSent = 0
		return true
	}

	if now.Sub(limit.lastWarningAt) > warningInterval {
		limit.warningsSent++
		limit.lastWarningAt = now
		rl.sendRateLimitWarning(chatID, limit.warningsSent)
	}

	return false
}

func (rl *RateLimiterMiddleware) sendRateLimitWarning(chatID int64, warningCount int) {
	text := render.MsgRateLimited
	if warningCount > 1 {
		text = render.MsgRateLimitedAgain
	}

	if _, err := rl.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// cleanupInactiveUsers drops buckets of users idle for an hour
func (rl *RateLimiterMiddleware) cleanupInactiveUsers() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		now := rl.now()
		rl.mu.Lock()
		for userID, limit := range rl.limits {
			limit.mu.Lock()
			if now.Sub(limit.lastRefill) > inactiveThreshold {
				delete(rl.limits, userID)
			}
			limit.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}
