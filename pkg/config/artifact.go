package config

// ArtifactConfig describes the S3-compatible object store holding build outputs.
type ArtifactConfig struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	RootPrefix string
}

// LoadArtifactConfig reads artifact store settings from environment variables.
func LoadArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Endpoint:   GetString("ARTIFACT_S3_ENDPOINT", "http://minio:9000"),
		Region:     GetString("ARTIFACT_S3_REGION", "us-east-1"),
		Bucket:     GetString("ARTIFACT_S3_BUCKET", "project-deplo"),
		AccessKey:  GetString("ARTIFACT_S3_ACCESS_KEY", ""),
		SecretKey:  GetString("ARTIFACT_S3_SECRET_KEY", ""),
		RootPrefix: GetString("ARTIFACT_ROOT_PREFIX", "__outputs"),
	}
}
