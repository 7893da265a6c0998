// Package smssvc delivers text messages through Twilio, or to the log in development.
package smssvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trezcool/cclient/core"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioService struct {
	api  messageCreator
	from string
}

var _ core.SMSService = (*twilioService)(nil)

func NewTwilioService(conf *core.Config) *twilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.Twilio.AccountSID,
		Password: conf.Twilio.AuthToken,
	})
	return &twilioService{api: client.Api, from: conf.Twilio.FromPhone}
}

func (svc *twilioService) SendSMS(ctx context.Context, messages ...core.SMSMessage) error {
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(msg.To)
		params.SetFrom(svc.from)
		params.SetBody(msg.Body)
		if _, err := svc.api.CreateMessage(params); err != nil {
			return errors.Wrapf(err, "sending sms to %s", msg.To)
		}
	}
	return nil
}
