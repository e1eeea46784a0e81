package engine

// FlatRecord is one (host, finding) pair flattened out of a scan report.
// Every field is always present once tabularized; optional values are empty strings.
type FlatRecord struct {
	HostAddress string `json:"IP"`
	ReportName  string `json:"Report Name"`
	Port        int    `json:"Port"`
	ServiceName string `json:"Service"`
	Protocol    string `json:"Protocol"`
	PluginID    int    `json:"Plugin ID"`
	PluginName  string `json:"Plugin Name"`
	OutputText  string `json:"Output"`
}

// ClassifiedError is a finding judged to be an authentication or credential problem.
type ClassifiedError struct {
	HostAddress string `json:"IP"`
	ReportName  string `json:"Report Name"`
	Port        int    `json:"Port"`
	ServiceName string `json:"Service"`
	PluginName  string `json:"Plugin"`
	Message     string `json:"Message"`
	OutputText  string `json:"Output"`
}

func newClassifiedError(r FlatRecord, message string) ClassifiedError {
	return ClassifiedError{
		HostAddress: r.HostAddress,
		ReportName:  r.ReportName,
		Port:        r.Port,
		ServiceName: r.ServiceName,
		PluginName:  r.PluginName,
		Message:     message,
		OutputText:  r.OutputText,
	}
}
