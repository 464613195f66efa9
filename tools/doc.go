// Package tools defines the tools served by the tool host.
// Each tool is a thin wrapper over one outbound HTTP request,
// and degrades to a default value or an error payload instead of failing.
package tools
