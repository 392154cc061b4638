// Package extractor acquires the raw online-retail dataset from a local file
// or an http(s) URL. Workbooks are read with excelize and CSV files with
// encoding/csv; source headers are mapped onto the raw column contract.
package extractor
