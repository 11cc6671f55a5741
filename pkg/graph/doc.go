// Package graph defines the assembly graph produced by evaluating a recipe.
// The graph is a DAG of primitives, transforms, parts and assemblies plus the
// material table and pipeline setting overrides the recipe declared.
package graph
