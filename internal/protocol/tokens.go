package protocol

// LFM2.5 chat-template control tokens. The compiled prompt embeds these
// byte-for-byte; they are fixed by the model's chat template and are not
// configurable.
const (
	StartOfText       = "<|startoftext|>"
	IMStart           = "<|im_start|>"
	IMEnd             = "<|im_end|>"
	ToolListStart     = "<|tool_list_start|>"
	ToolListEnd       = "<|tool_list_end|>"
	ToolCallStart     = "<|tool_call_start|>"
	ToolCallEnd       = "<|tool_call_end|>"
	ToolResponseStart = "<|tool_response_start|>"
	ToolResponseEnd   = "<|tool_response_end|>"
)
