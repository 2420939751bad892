package ext

// Standard span tags recognized by the tracer core and, downstream, by the
// Datadog agent and UI. Reserved "_dd."-prefixed keys are not listed here;
// they live alongside the components that write them.
const (
	// ServiceName defines the service name for this span.
	ServiceName = "service.name"

	// ResourceName defines the resource name for the span.
	ResourceName = "resource.name"

	// SpanType defines the Span type (web, db, cache).
	SpanType = "span.type"

	// SpanName is the name of the operation being performed.
	SpanName = "span.name"

	// Error is used to flag a span as containing an error.
	Error = "error"

	// ErrorMsg specifies the error message.
	ErrorMsg = "error.msg"

	// ErrorType specifies the error type.
	ErrorType = "error.type"

	// ErrorStack specifies the error stack.
	ErrorStack = "error.stack"

	// Environment specifies the env. for this span.
	Environment = "env"

	// Version specifies the application version for this span.
	Version = "version"

	// EventSampleRate specifies the rate at which this span will be sampled
	// as an APM event.
	EventSampleRate = "_dd1.sr.eausr"

	// AnalyticsEvent marks a span as an analytics event.
	AnalyticsEvent = "analytics.event"

	// ManualDrop specifies that the trace should be dropped.
	ManualDrop = "manual.drop"

	// ManualKeep specifies that the trace should be kept.
	ManualKeep = "manual.keep"

	// SamplingPriority is the tag that carries the sampling decision.
	//
	// Deprecated: use SamplingPriorityV1 instead.
	SamplingPriority = "sampling.priority"

	// SamplingPriorityV1 is the tag that carries the sampling decision under
	// the modern (v1+) sampling priority scheme.
	SamplingPriorityV1 = "_sampling_priority_v1"

	// PeerService indicates the service name of the remote peer a client
	// span calls into.
	PeerService = "peer.service"

	// TargetHost is used to set the target host address.
	TargetHost = "out.host"

	// TargetPort is used to set the target port.
	TargetPort = "network.destination.port"

	// SpanKind defines the Span kind (client, server, producer, consumer, internal).
	SpanKind = "span.kind"

	// DBSystem indicates the database management system (DBMS) product.
	DBSystem = "db.system"

	// MessagingSystem indicates the messaging system involved (kafka, sqs, ...).
	MessagingSystem = "messaging.system"

	// RPCSystem indicates the RPC system (grpc, ...).
	RPCSystem = "rpc.system"

	// Component indicates the integration/library that produced the span.
	Component = "component"
)

// Values for the SpanKind tag.
const (
	SpanKindClient   = "client"
	SpanKindServer   = "server"
	SpanKindProducer = "producer"
	SpanKindConsumer = "consumer"
	SpanKindInternal = "internal"
)

// Priority values for SamplingPriorityV1, matching the wire protocol.
const (
	// PriorityUserReject informs the backend that a trace should be
	// rejected and not stored, and was explicitly requested by the user.
	PriorityUserReject = -1

	// PriorityAutoReject informs the backend that a trace should be
	// rejected and not stored.
	PriorityAutoReject = 0

	// PriorityAutoKeep informs the backend that a trace should be kept.
	PriorityAutoKeep = 1

	// PriorityUserKeep informs the backend that a trace should be kept and
	// not sampled again, and was explicitly requested by the user.
	PriorityUserKeep = 2
)

// SpanSamplingMechanism is the name of the single-span-sampling
// mechanism tag.
const SpanSamplingMechanism = "_dd.span_sampling.mechanism"

// Single-span sampling tags, written when a SpanSampler keeps an individual
// span from an otherwise-dropped trace.
const (
	// SingleSpanSamplingMechanism carries the constant mechanism value (8).
	SingleSpanSamplingMechanism = "_dd.span_sampling.mechanism"

	// SingleSpanSamplingRuleRate carries the configured sampling rate of
	// the rule that matched.
	SingleSpanSamplingRuleRate = "_dd.span_sampling.rule_rate"

	// SingleSpanSamplingMaxPerSecond carries the rule's max-per-second
	// limit, when set.
	SingleSpanSamplingMaxPerSecond = "_dd.span_sampling.max_per_second"

	// SingleSpanSamplingMechanismValue is the fixed value SamplerName
	// serializes for single-span sampling decisions.
	SingleSpanSamplingMechanismValue = 8
)
