// Package graph turns a loaded project into a closed reference graph: every
// entity registered by (kind, id), owners associated, target paths assigned,
// and every outbound reference checked against the registry.
//
// Reference problems never fail the run. Unresolved references are collected
// as warnings and the offending elements are omitted downstream; duplicate
// ids and target path collisions mark the later entity failed and leave its
// siblings untouched.
package graph
