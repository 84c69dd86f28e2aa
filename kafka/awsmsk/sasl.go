// Package awsmsk provides the SASL mechanism for connecting to an AWS MSK
// cluster with IAM auth from an EC2 instance role.
package awsmsk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/harborview/crmsync/e"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/aws_msk_iam_v2"
)

const (
	// Error constants
	ECodeKF0301 = e.CodeKF03 + "01"
	ECodeKF0302 = e.CodeKF03 + "02"
)

// SASLMechanismConfig configuration options for NewSASLMechanism
type SASLMechanismConfig struct {
	Region string
}

// NewSASLMechanism returns a new SASL mechanism using the ec2 role credentials
func NewSASLMechanism(c SASLMechanismConfig) (sm sasl.Mechanism, err error) {
	if c.Region == "" {
		return nil, e.N(ECodeKF0301, "region not specified")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, e.W(err, ECodeKF0302)
	}
	cfg.Region = c.Region
	cfg.Credentials = aws.NewCredentialsCache(ec2rolecreds.New())

	return aws_msk_iam_v2.NewMechanism(cfg), nil
}
