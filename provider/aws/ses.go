package provider

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"

	"github.com/interactive-solutions/go-campaign"
)

type sesTransport struct {
	ses *ses.SES

	from    string
	subject string
	charset string
}

func NewSesTransport(sess *session.Session, from, subject string) campaign.BatchTransport {
	return &sesTransport{
		ses:     ses.New(sess),
		from:    from,
		subject: subject,
		charset: "UTF-8",
	}
}

func (transport *sesTransport) Send(ctx context.Context, address, message string) (string, error) {
	return transport.deliver(ctx, []string{address}, message)
}

func (transport *sesTransport) SendBatch(ctx context.Context, addresses []string, message string) (string, error) {
	return transport.deliver(ctx, addresses, message)
}

func (transport *sesTransport) deliver(ctx context.Context, addresses []string, message string) (string, error) {
	to := make([]*string, 0, len(addresses))
	for _, address := range addresses {
		to = append(to, aws.String(address))
	}

	// Assemble the email.
	input := &ses.SendEmailInput{
		Destination: &ses.Destination{
			CcAddresses: []*string{},
			ToAddresses: to,
		},
		Message: &ses.Message{
			Body: &ses.Body{
				Text: &ses.Content{
					Charset: aws.String(transport.charset),
					Data:    aws.String(message),
				},
			},
			Subject: &ses.Content{
				Charset: aws.String(transport.charset),
				Data:    aws.String(transport.subject),
			},
		},

		Source: aws.String(transport.from),
	}

	// Attempt to send the email.
	output, err := transport.ses.SendEmailWithContext(ctx, input)
	if err != nil {
		return "", err
	}

	return aws.StringValue(output.MessageId), nil
}
