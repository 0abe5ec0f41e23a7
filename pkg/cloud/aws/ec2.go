package aws

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cuemby/fleetdeploy/pkg/cloud"
	"github.com/cuemby/fleetdeploy/pkg/types"
)

const serviceEC2 = "ec2"

func (p *Provider) DescribeImages(ctx context.Context, filter cloud.NameFilter) ([]types.ImageRecord, error) {
	value := filter.Name
	if filter.Mode == types.MatchPrefix {
		value += "*"
	}

	paginator := ec2.NewDescribeImagesPaginator(p.ec2, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
		Filters: []ec2types.Filter{
			{Name: aws.String("name"), Values: []string{value}},
		},
	})

	var out []types.ImageRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap(serviceEC2, "DescribeImages", filter.Name, err)
		}
		for _, img := range page.Images {
			out = append(out, imageRecord(img))
		}
	}
	return out, nil
}

func imageRecord(img ec2types.Image) types.ImageRecord {
	record := types.ImageRecord{
		ID:    aws.ToString(img.ImageId),
		Name:  aws.ToString(img.Name),
		State: imageState(img.State),
	}
	if created, err := time.Parse(time.RFC3339, aws.ToString(img.CreationDate)); err == nil {
		record.CreatedAt = created
	}
	for _, bdm := range img.BlockDeviceMappings {
		if bdm.Ebs != nil && bdm.Ebs.SnapshotId != nil {
			record.SnapshotIDs = append(record.SnapshotIDs, *bdm.Ebs.SnapshotId)
		}
	}
	return record
}

func imageState(state ec2types.ImageState) types.ImageState {
	switch state {
	case ec2types.ImageStateAvailable:
		return types.ImageAvailable
	case ec2types.ImageStatePending:
		return types.ImagePending
	default:
		return types.ImageFailed
	}
}

func (p *Provider) DeregisterImage(ctx context.Context, imageID string) error {
	_, err := p.ec2.DeregisterImage(ctx, &ec2.DeregisterImageInput{ImageId: aws.String(imageID)})
	return wrap(serviceEC2, "DeregisterImage", imageID, err)
}

func (p *Provider) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := p.ec2.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(snapshotID)})
	return wrap(serviceEC2, "DeleteSnapshot", snapshotID, err)
}

func (p *Provider) DescribeLaunchTemplate(ctx context.Context, name string) (*types.LaunchTemplateRecord, error) {
	out, err := p.ec2.DescribeLaunchTemplates(ctx, &ec2.DescribeLaunchTemplatesInput{
		LaunchTemplateNames: []string{name},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrap(serviceEC2, "DescribeLaunchTemplates", name, err)
	}
	for _, lt := range out.LaunchTemplates {
		if aws.ToString(lt.LaunchTemplateName) == name {
			record := launchTemplateRecord(lt)
			return &record, nil
		}
	}
	return nil, nil
}

func launchTemplateRecord(lt ec2types.LaunchTemplate) types.LaunchTemplateRecord {
	return types.LaunchTemplateRecord{
		ID:            aws.ToString(lt.LaunchTemplateId),
		Name:          aws.ToString(lt.LaunchTemplateName),
		LatestVersion: aws.ToInt64(lt.LatestVersionNumber),
	}
}

func (p *Provider) CreateLaunchTemplate(ctx context.Context, spec types.LaunchTemplateSpec) (*types.LaunchTemplateRecord, error) {
	data := &ec2types.RequestLaunchTemplateData{
		ImageId:          aws.String(spec.ImageID),
		InstanceType:     ec2types.InstanceType(spec.InstanceClass),
		SecurityGroupIds: spec.SecurityGroupIDs,
	}
	if spec.KeyPair != "" {
		data.KeyName = aws.String(spec.KeyPair)
	}
	if spec.InstanceProfile != "" {
		data.IamInstanceProfile = &ec2types.LaunchTemplateIamInstanceProfileSpecificationRequest{
			Name: aws.String(spec.InstanceProfile),
		}
	}
	if len(spec.UserData) > 0 {
		data.UserData = aws.String(base64.StdEncoding.EncodeToString(spec.UserData))
	}

	out, err := p.ec2.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(spec.Name),
		LaunchTemplateData: data,
	})
	if err != nil {
		return nil, wrap(serviceEC2, "CreateLaunchTemplate", spec.Name, err)
	}
	if out.LaunchTemplate == nil {
		return &types.LaunchTemplateRecord{Name: spec.Name, LatestVersion: 1}, nil
	}
	record := launchTemplateRecord(*out.LaunchTemplate)
	return &record, nil
}

func (p *Provider) DeleteLaunchTemplate(ctx context.Context, name string) error {
	_, err := p.ec2.DeleteLaunchTemplate(ctx, &ec2.DeleteLaunchTemplateInput{
		LaunchTemplateName: aws.String(name),
	})
	return wrap(serviceEC2, "DeleteLaunchTemplate", name, err)
}

func (p *Provider) DescribeSecurityGroups(ctx context.Context, names []string) ([]types.SecurityGroup, error) {
	out, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: names},
		},
	})
	if err != nil {
		return nil, wrap(serviceEC2, "DescribeSecurityGroups", strings.Join(names, ","), err)
	}

	groups := make([]types.SecurityGroup, 0, len(out.SecurityGroups))
	for _, g := range out.SecurityGroups {
		groups = append(groups, types.SecurityGroup{
			ID:   aws.ToString(g.GroupId),
			Name: aws.ToString(g.GroupName),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (p *Provider) DescribeKeyPair(ctx context.Context, name string) (string, error) {
	out, err := p.ec2.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{KeyNames: []string{name}})
	if err != nil {
		return "", wrap(serviceEC2, "DescribeKeyPairs", name, err)
	}
	for _, kp := range out.KeyPairs {
		if aws.ToString(kp.KeyName) == name {
			return name, nil
		}
	}
	return "", types.NotFoundf("key pair %s", name)
}
