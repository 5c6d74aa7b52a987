package lf

import "go.uber.org/zap"

const (
	FieldRunID       = "run_id"
	FieldStage       = "stage"
	FieldEnvironment = "environment"
	FieldTrigger     = "trigger"
	FieldCommit      = "commit_sha"
	FieldImageTag    = "image_tag"
	FieldImageRef    = "image_ref"
	FieldProbe       = "probe"
	FieldStatus      = "status"
	FieldToken       = "token"
)

func RunID(id string) zap.Field {
	return zap.String(FieldRunID, id)
}

func Stage(name string) zap.Field {
	return zap.String(FieldStage, name)
}

func Environment(env string) zap.Field {
	return zap.String(FieldEnvironment, env)
}

func Trigger(kind string) zap.Field {
	return zap.String(FieldTrigger, kind)
}

func Commit(sha string) zap.Field {
	return zap.String(FieldCommit, sha)
}

func ImageTag(tag string) zap.Field {
	return zap.String(FieldImageTag, tag)
}

func ImageRef(ref string) zap.Field {
	return zap.String(FieldImageRef, ref)
}

func Probe(name string) zap.Field {
	return zap.String(FieldProbe, name)
}

func Status(status string) zap.Field {
	return zap.String(FieldStatus, status)
}

func Token(token string) zap.Field {
	return zap.String(FieldToken, token)
}
