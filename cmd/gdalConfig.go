package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/urfave/cli"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"

	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	aws3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type GDALConfig struct {
	BlockSize       string
	NumCachedBlocks int
	WithGCS         bool
	WithS3          bool
	AwsRegion       string
	AwsEndpoint     string
	AwsCredentials  string
}

const (
	BlockSize       = "gdal-block-size"
	NumCachedBlocks = "gdal-num-cached-blocks"
	WithGCS         = "with-gcs"
	WithS3          = "with-s3"
	AWSRegion       = "aws-region"
	AWSEndPoint     = "aws-endpoint"
	AwsCredentials  = "aws-shared-credentials-file"
)

// GDALConfigFlags returns the global flags configuring GDAL and the osio handlers
func GDALConfigFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: BlockSize, Value: "1Mb", Usage: "gdal blocksize value"},
		cli.IntFlag{Name: NumCachedBlocks, Value: 500, Usage: "gdal blockcache value"},
		cli.BoolFlag{Name: WithGCS, Usage: "configure GDAL to use gcs storage (may need authentication)"},
		cli.BoolFlag{Name: WithS3, Usage: "configure GDAL to use s3 storage (may need authentication)"},
		cli.StringFlag{Name: AWSRegion, EnvVar: "AWS_REGION", Usage: "define aws_region for GDAL to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AWSEndPoint, Usage: "define aws_endpoint for GDAL to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AwsCredentials, Usage: "define aws_shared_credentials_file for GDAL to use s3 storage (--with-s3)"},
	}
}

// NewGDALConfig reads the flags defined by GDALConfigFlags
func NewGDALConfig(c *cli.Context) *GDALConfig {
	return &GDALConfig{
		BlockSize:       c.GlobalString(BlockSize),
		NumCachedBlocks: c.GlobalInt(NumCachedBlocks),
		WithGCS:         c.GlobalBool(WithGCS),
		WithS3:          c.GlobalBool(WithS3),
		AwsRegion:       c.GlobalString(AWSRegion),
		AwsEndpoint:     c.GlobalString(AWSEndPoint),
		AwsCredentials:  c.GlobalString(AwsCredentials),
	}
}

func InitGDAL(ctx context.Context, gdalConfig *GDALConfig) error {
	os.Setenv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")

	godal.RegisterAll()

	if gdalConfig.WithGCS {
		gcsHandle, err := osioGcs.Handle(ctx)
		if err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
		gcsa, err := osio.NewAdapter(gcsHandle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
		if err = godal.RegisterVSIHandler("gs://", gcsa); err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
	}

	if gdalConfig.WithS3 {
		opts := []func(*awsConfig.LoadOptions) error{
			awsConfig.WithRegion(gdalConfig.AwsRegion),
		}
		if gdalConfig.AwsCredentials != "" {
			opts = append(opts, awsConfig.WithSharedCredentialsFiles([]string{gdalConfig.AwsCredentials}))
		}
		if gdalConfig.AwsEndpoint != "" {
			resolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					PartitionID:       "aws",
					URL:               gdalConfig.AwsEndpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})
			opts = append(opts, awsConfig.WithEndpointResolver(resolver))
		}

		config, err := awsConfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}

		s3Client := aws3.NewFromConfig(config)
		osioS3Handle, err := osioS3.Handle(ctx, osioS3.S3Client(s3Client))
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}

		s3Adapter, err := osio.NewAdapter(osioS3Handle,
			osio.BlockSize(gdalConfig.BlockSize),
			osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}

		if err = godal.RegisterVSIHandler("s3://", s3Adapter); err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
	}

	return nil
}
