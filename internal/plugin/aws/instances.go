package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/rouse/pkg/instance"
)

// ListInstances returns every EC2 instance in the region, across all
// reservations and pages, in the order EC2 reports them.
func (p *Plugin) ListInstances(ctx context.Context) ([]instance.Instance, error) {
	var instances []instance.Instance
	var nextToken *string

	for {
		output, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, wrapAPIError("describe instances", err)
		}

		for _, reservation := range output.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, convertEC2Instance(inst))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	p.logger.Debug().Int("count", len(instances)).Msg("listed instances")
	return instances, nil
}

// StartInstances issues a single start request for all ids.
func (p *Plugin) StartInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	output, err := p.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: ids})
	if err != nil {
		return wrapAPIError("start instances", err)
	}

	for _, change := range output.StartingInstances {
		event := p.logger.Debug().Str("instance_id", aws.ToString(change.InstanceId))
		if change.PreviousState != nil {
			event = event.Str("previous", string(change.PreviousState.Name))
		}
		if change.CurrentState != nil {
			event = event.Str("current", string(change.CurrentState.Name))
		}
		event.Msg("start requested")
	}

	return nil
}

func convertEC2Instance(inst ec2types.Instance) instance.Instance {
	result := instance.Instance{
		ID:       aws.ToString(inst.InstanceId),
		Tags:     make(map[string]string, len(inst.Tags)),
		PublicIP: aws.ToString(inst.PublicIpAddress),
	}
	if inst.State != nil {
		result.RawState = string(inst.State.Name)
	}
	for _, tag := range inst.Tags {
		result.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return result
}
