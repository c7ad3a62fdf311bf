// Package extract provides the text extraction service used by the tool stage.
//
// A Router dispatches on the detected document kind to one extractor per
// family: plain text, DOCX, PDF (through an allow-listed pdftotext command)
// and images (through the Azure AI Vision Read API). Kinds without a
// registered extractor fail with *faults.UnsupportedFormatError.
package extract
