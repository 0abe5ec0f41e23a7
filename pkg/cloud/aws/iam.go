package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

const serviceIAM = "iam"

func (p *Provider) ListInstanceProfilesForRole(ctx context.Context, role string) ([]string, error) {
	paginator := iam.NewListInstanceProfilesForRolePaginator(p.iam, &iam.ListInstanceProfilesForRoleInput{
		RoleName: aws.String(role),
	})

	var profiles []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap(serviceIAM, "ListInstanceProfilesForRole", role, err)
		}
		for _, ip := range page.InstanceProfiles {
			profiles = append(profiles, aws.ToString(ip.InstanceProfileName))
		}
	}
	return profiles, nil
}
