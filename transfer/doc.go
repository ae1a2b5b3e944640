// Package transfer moves resources between locations.
//
// A Manager copies the content of one resource to another. The Copier
// implementation handles catalog tables and storage objects, including
// exports of tables to JSON lines objects and imports back. A Target
// computes where a resource should go, typically from a Template such as
// "errors/{{.Step}}/{{.Name}}".
package transfer
