package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// TaskConfig is the opaque placement configuration for worker tasks.
type TaskConfig struct {
	Cluster        string
	TaskDefinition string
	ContainerName  string
	LaunchType     string
	SubnetID       string
}

// ecsAPI is the subset of the ECS client the launcher uses.
type ecsAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
	StopTask(ctx context.Context, params *ecs.StopTaskInput, optFns ...func(*ecs.Options)) (*ecs.StopTaskOutput, error)
	DescribeClusters(ctx context.Context, params *ecs.DescribeClustersInput, optFns ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error)
}

// ECSLauncher starts and stops per-client worker tasks on ECS. The returned
// handle is the task ARN.
type ECSLauncher struct {
	client ecsAPI
	cfg    TaskConfig
}

// NewECSLauncher creates a launcher for the given cluster placement.
func NewECSLauncher(client ecsAPI, cfg TaskConfig) *ECSLauncher {
	return &ECSLauncher{client: client, cfg: cfg}
}

// Start launches one worker task bound to the client via its environment.
func (l *ECSLauncher) Start(ctx context.Context, clientID string) (string, error) {
	out, err := l.client.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(l.cfg.Cluster),
		TaskDefinition: aws.String(l.cfg.TaskDefinition),
		Count:          aws.Int32(1),
		LaunchType:     types.LaunchType(l.cfg.LaunchType),
		Overrides: &types.TaskOverride{
			ContainerOverrides: []types.ContainerOverride{
				{
					Name: aws.String(l.cfg.ContainerName),
					Environment: []types.KeyValuePair{
						{Name: aws.String("CLIENT_ID"), Value: aws.String(clientID)},
					},
				},
			},
		},
		NetworkConfiguration: &types.NetworkConfiguration{
			AwsvpcConfiguration: &types.AwsVpcConfiguration{
				Subnets:        []string{l.cfg.SubnetID},
				AssignPublicIp: types.AssignPublicIpEnabled,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("run task for %s: %w", clientID, err)
	}
	if len(out.Tasks) == 0 {
		if len(out.Failures) > 0 {
			return "", fmt.Errorf("run task for %s: %s", clientID, aws.ToString(out.Failures[0].Reason))
		}
		return "", errors.New("run task: no task started")
	}
	return aws.ToString(out.Tasks[0].TaskArn), nil
}

// Stop terminates a previously started worker task.
func (l *ECSLauncher) Stop(ctx context.Context, handle string) error {
	_, err := l.client.StopTask(ctx, &ecs.StopTaskInput{
		Cluster: aws.String(l.cfg.Cluster),
		Task:    aws.String(handle),
		Reason:  aws.String("session ended or timeout reached"),
	})
	if err != nil {
		return fmt.Errorf("stop task %s: %w", handle, err)
	}
	return nil
}

// Ping probes the cluster for readiness checks.
func (l *ECSLauncher) Ping(ctx context.Context) error {
	out, err := l.client.DescribeClusters(ctx, &ecs.DescribeClustersInput{
		Clusters: []string{l.cfg.Cluster},
	})
	if err != nil {
		return fmt.Errorf("describe cluster %s: %w", l.cfg.Cluster, err)
	}
	if len(out.Clusters) == 0 {
		return fmt.Errorf("cluster %s not found", l.cfg.Cluster)
	}
	return nil
}
