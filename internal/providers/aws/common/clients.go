package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used to resolve the caller.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// SecretsManagerClient covers reading, rewriting and listing secrets.
// It embeds ListSecretsAPIClient so the SDK paginator can be used directly.
type SecretsManagerClient interface {
	secretsmanager.ListSecretsAPIClient
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(
		ctx context.Context,
		params *secretsmanager.UpdateSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.UpdateSecretOutput, error)
}

// KMSClient covers key policy reads and writes plus key enumeration.
type KMSClient interface {
	kms.ListKeysAPIClient
	GetKeyPolicy(
		ctx context.Context,
		params *kms.GetKeyPolicyInput,
		optFns ...func(*kms.Options),
	) (*kms.GetKeyPolicyOutput, error)
	PutKeyPolicy(
		ctx context.Context,
		params *kms.PutKeyPolicyInput,
		optFns ...func(*kms.Options),
	) (*kms.PutKeyPolicyOutput, error)
	DescribeKey(
		ctx context.Context,
		params *kms.DescribeKeyInput,
		optFns ...func(*kms.Options),
	) (*kms.DescribeKeyOutput, error)
}

// EC2Client covers security group lookup and rule management.
type EC2Client interface {
	DescribeSecurityGroups(
		ctx context.Context,
		params *ec2.DescribeSecurityGroupsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeSecurityGroupRules(
		ctx context.Context,
		params *ec2.DescribeSecurityGroupRulesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeSecurityGroupRulesOutput, error)
	AuthorizeSecurityGroupIngress(
		ctx context.Context,
		params *ec2.AuthorizeSecurityGroupIngressInput,
		optFns ...func(*ec2.Options),
	) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	AuthorizeSecurityGroupEgress(
		ctx context.Context,
		params *ec2.AuthorizeSecurityGroupEgressInput,
		optFns ...func(*ec2.Options),
	) (*ec2.AuthorizeSecurityGroupEgressOutput, error)
	RevokeSecurityGroupIngress(
		ctx context.Context,
		params *ec2.RevokeSecurityGroupIngressInput,
		optFns ...func(*ec2.Options),
	) (*ec2.RevokeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupEgress(
		ctx context.Context,
		params *ec2.RevokeSecurityGroupEgressInput,
		optFns ...func(*ec2.Options),
	) (*ec2.RevokeSecurityGroupEgressOutput, error)
}

// IAMClient covers user, role and access key operations. It embeds the
// ListUsers and ListRoles API clients so the SDK paginators can be used.
type IAMClient interface {
	iam.ListUsersAPIClient
	iam.ListRolesAPIClient
	ListAccessKeys(
		ctx context.Context,
		params *iam.ListAccessKeysInput,
		optFns ...func(*iam.Options),
	) (*iam.ListAccessKeysOutput, error)
	CreateAccessKey(
		ctx context.Context,
		params *iam.CreateAccessKeyInput,
		optFns ...func(*iam.Options),
	) (*iam.CreateAccessKeyOutput, error)
}

// S3Client covers bucket CORS configuration.
type S3Client interface {
	GetBucketCors(
		ctx context.Context,
		params *s3.GetBucketCorsInput,
		optFns ...func(*s3.Options),
	) (*s3.GetBucketCorsOutput, error)
	PutBucketCors(
		ctx context.Context,
		params *s3.PutBucketCorsInput,
		optFns ...func(*s3.Options),
	) (*s3.PutBucketCorsOutput, error)
}

// RDSClient covers database endpoint discovery.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)
}

// ELBv2Client covers load balancer DNS discovery.
type ELBv2Client interface {
	DescribeLoadBalancers(
		ctx context.Context,
		params *elbv2.DescribeLoadBalancersInput,
		optFns ...func(*elbv2.Options),
	) (*elbv2.DescribeLoadBalancersOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds fully initialised AWS service clients for one credential
// scope. All fields are interfaces so they can be replaced with mocks in
// tests without importing the AWS SDK in test files.
type ClientSet struct {
	STS            STSClient
	SecretsManager SecretsManagerClient
	KMS            KMSClient
	EC2            EC2Client
	IAM            IAMClient
	S3             S3Client
	RDS            RDSClient
	ELBv2          ELBv2Client
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS:            sts.NewFromConfig(cfg),
		SecretsManager: secretsmanager.NewFromConfig(cfg),
		KMS:            kms.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		IAM:            iam.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		RDS:            rds.NewFromConfig(cfg),
		ELBv2:          elbv2.NewFromConfig(cfg),
	}
}
