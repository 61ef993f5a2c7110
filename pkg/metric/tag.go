package metric

import "strings"

const (
	TagEnv                   = "env"
	TagService               = "service"
	TagPath                  = "path"
	TagMethod                = "method"
	TagModelName             = "model_name"
	TagCallerId              = "caller_id"
	TagErrorType             = "error_type"
	TagHttpStatusCode        = "http_status_code"
	TagGrpcStatusCode        = "grpc_status_code"
	TagExternalService       = "external_service"
	TagCommunicationProtocol = "communication_protocol"

	TagValueCommunicationProtocolHttp = "http"
	TagValueCommunicationProtocolGrpc = "grpc"
)

type Tag struct {
	Name  string
	Value string
}

func NewTag(name, value string) Tag {
	return Tag{Name: name, Value: value}
}

// BuildTag renders tags as name:value strings.
func BuildTag(tags ...Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, TagAsString(tag.Name, tag.Value))
	}
	return out
}

// DogStatsD treats these as separators; "/" is kept so URL paths stay readable.
var tagValueReplacer = strings.NewReplacer(
	":", "_",
	" ", "_",
	"\\", "_",
	",", "_",
	"|", "_",
	"@", "_",
	"#", "_",
)

func normalizeTagValue(value string) string {
	return tagValueReplacer.Replace(value)
}

func TagAsString(name string, value string) string {
	return name + ":" + normalizeTagValue(value)
}

func UpdateTags(tags *[]string, newTags ...Tag) {
	for _, tag := range newTags {
		*tags = append(*tags, TagAsString(tag.Name, tag.Value))
	}
}
