// Package render fills in a job submission script template.
//
// The original Jinja2 templates took cluster, job, and baseUrl plus
// whatever job params happened to be set as free keyword arguments;
// here the variable set is fixed to a single Context, exposed to the
// template as a map. Field references are not checked at parse time;
// a reference to a key the map lacks renders as "<no value>".
package render
