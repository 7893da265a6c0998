package smssvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/cclient/core"
)

type ConsoleService struct {
	logger core.Logger

	mu   sync.Mutex
	sent []core.SMSMessage
	fail error
}

var _ core.SMSService = (*ConsoleService)(nil)

// NewConsoleService returns an SMSService that logs messages instead of sending them. logger may be nil.
func NewConsoleService(logger core.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

func (svc *ConsoleService) SendSMS(ctx context.Context, messages ...core.SMSMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.fail != nil {
		return svc.fail
	}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if svc.logger != nil {
			svc.logger.Info(fmt.Sprintf("SMS to %s: %s", msg.To, msg.Body))
		}
		svc.sent = append(svc.sent, msg)
	}
	return nil
}

func (svc *ConsoleService) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.SMSMessage(nil), svc.sent...)
}

// FailWith makes every subsequent send return err; nil restores normal behavior.
func (svc *ConsoleService) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.fail = err
}
