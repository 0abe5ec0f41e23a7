package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

const serviceAutoScaling = "autoscaling"

// latestVersion pins the fleet to whatever version its template has
const latestVersion = "$Latest"

func (p *Provider) DescribeFleet(ctx context.Context, name string) (types.FleetSnapshot, error) {
	out, err := p.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{name},
	})
	if err != nil {
		return types.FleetSnapshot{}, wrap(serviceAutoScaling, "DescribeAutoScalingGroups", name, err)
	}
	for _, g := range out.AutoScalingGroups {
		if aws.ToString(g.AutoScalingGroupName) == name {
			return fleetSnapshot(g), nil
		}
	}
	return types.FleetSnapshot{}, types.NotFoundf("autoscaling group %s", name)
}

func fleetSnapshot(g astypes.AutoScalingGroup) types.FleetSnapshot {
	fleet := types.FleetSnapshot{
		Name:           aws.ToString(g.AutoScalingGroupName),
		Desired:        int(aws.ToInt32(g.DesiredCapacity)),
		Min:            int(aws.ToInt32(g.MinSize)),
		Max:            int(aws.ToInt32(g.MaxSize)),
		LaunchTemplate: templateName(g.LaunchTemplate),
	}
	for _, inst := range g.Instances {
		fleet.Members = append(fleet.Members, types.Member{
			InstanceID:     aws.ToString(inst.InstanceId),
			Lifecycle:      types.LifecycleState(inst.LifecycleState),
			Health:         types.HealthStatus(aws.ToString(inst.HealthStatus)),
			LaunchTemplate: templateName(inst.LaunchTemplate),
		})
	}
	for _, sp := range g.SuspendedProcesses {
		fleet.SuspendedProcesses = append(fleet.SuspendedProcesses, aws.ToString(sp.ProcessName))
	}
	return fleet
}

func templateName(spec *astypes.LaunchTemplateSpecification) string {
	if spec == nil {
		return ""
	}
	return aws.ToString(spec.LaunchTemplateName)
}

func (p *Provider) SetCapacity(ctx context.Context, name string, desired, maxSize int) error {
	_, err := p.asg.UpdateAutoScalingGroup(ctx, &autoscaling.UpdateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(name),
		DesiredCapacity:      aws.Int32(int32(desired)),
		MaxSize:              aws.Int32(int32(maxSize)),
	})
	return wrap(serviceAutoScaling, "UpdateAutoScalingGroup", fmt.Sprintf("%s capacity", name), err)
}

func (p *Provider) SetLaunchTemplate(ctx context.Context, name, template string) error {
	_, err := p.asg.UpdateAutoScalingGroup(ctx, &autoscaling.UpdateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(name),
		LaunchTemplate: &astypes.LaunchTemplateSpecification{
			LaunchTemplateName: aws.String(template),
			Version:            aws.String(latestVersion),
		},
	})
	return wrap(serviceAutoScaling, "UpdateAutoScalingGroup", fmt.Sprintf("%s template", name), err)
}

func (p *Provider) SuspendProcesses(ctx context.Context, name string, processes []string) error {
	_, err := p.asg.SuspendProcesses(ctx, &autoscaling.SuspendProcessesInput{
		AutoScalingGroupName: aws.String(name),
		ScalingProcesses:     processes,
	})
	return wrap(serviceAutoScaling, "SuspendProcesses", name, err)
}

func (p *Provider) ResumeProcesses(ctx context.Context, name string, processes []string) error {
	_, err := p.asg.ResumeProcesses(ctx, &autoscaling.ResumeProcessesInput{
		AutoScalingGroupName: aws.String(name),
		ScalingProcesses:     processes,
	})
	return wrap(serviceAutoScaling, "ResumeProcesses", name, err)
}

// TerminateMember terminates one instance without decrementing desired
// capacity; the deploy shrinks capacity itself afterwards.
func (p *Provider) TerminateMember(ctx context.Context, instanceID string) error {
	_, err := p.asg.TerminateInstanceInAutoScalingGroup(ctx, &autoscaling.TerminateInstanceInAutoScalingGroupInput{
		InstanceId:                     aws.String(instanceID),
		ShouldDecrementDesiredCapacity: aws.Bool(false),
	})
	return wrap(serviceAutoScaling, "TerminateInstanceInAutoScalingGroup", instanceID, err)
}
