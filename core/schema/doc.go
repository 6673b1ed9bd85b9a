// Package schema maps the column headers of input files onto canonical
// column names through an explicit alias table.
package schema
