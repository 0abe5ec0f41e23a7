package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

const serviceELB = "elasticloadbalancing"

// invalidInstance is returned by DescribeInstanceHealth for instances the
// load balancer does not know about
const invalidInstance = "InvalidInstance"

func (p *Provider) DescribeLoadBalancer(ctx context.Context, name string) (types.LoadBalancerStatus, error) {
	out, err := p.elb.DescribeLoadBalancers(ctx, &elasticloadbalancing.DescribeLoadBalancersInput{
		LoadBalancerNames: []string{name},
	})
	if err != nil {
		return types.LoadBalancerStatus{}, wrap(serviceELB, "DescribeLoadBalancers", name, err)
	}
	if len(out.LoadBalancerDescriptions) == 0 {
		return types.LoadBalancerStatus{}, types.NotFoundf("load balancer %s", name)
	}
	desc := out.LoadBalancerDescriptions[0]

	status := types.LoadBalancerStatus{
		Name:          aws.ToString(desc.LoadBalancerName),
		DNSName:       aws.ToString(desc.DNSName),
		InstanceCount: len(desc.Instances),
		Instances:     make(map[string]types.InstanceState, len(desc.Instances)),
	}

	health, err := p.elb.DescribeInstanceHealth(ctx, &elasticloadbalancing.DescribeInstanceHealthInput{
		LoadBalancerName: aws.String(name),
	})
	if err != nil {
		if errorCode(err) == invalidInstance {
			return status, nil
		}
		return types.LoadBalancerStatus{}, wrap(serviceELB, "DescribeInstanceHealth", name, err)
	}
	for _, s := range health.InstanceStates {
		status.Instances[aws.ToString(s.InstanceId)] = instanceState(aws.ToString(s.State))
	}
	return status, nil
}

func instanceState(state string) types.InstanceState {
	switch types.InstanceState(state) {
	case types.InstanceInService, types.InstanceOutOfService:
		return types.InstanceState(state)
	default:
		return types.InstanceUnknown
	}
}
