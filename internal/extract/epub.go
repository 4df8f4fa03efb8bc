package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// container.xml points at the OPF package document.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// The OPF package: manifest maps item IDs to hrefs, spine orders them.
type epubPackage struct {
	Manifest []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// extractEPUB walks the OPF spine and emits one page record per chapter.
// EPUBs carry no physical pages, so print pages stay nil.
func (e *Extractor) extractEPUB(epubPath string) (*Document, error) {
	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeExtractFailed,
			fmt.Sprintf("open epub %s", filepath.Base(epubPath)), err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := readXML(files, "META-INF/container.xml", &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 {
		return nil, pipeerr.New(pipeerr.ErrCodeExtractFailed,
			fmt.Sprintf("epub %s has no rootfile", filepath.Base(epubPath)), nil)
	}

	opfPath := container.Rootfiles[0].FullPath
	var pkg epubPackage
	if err := readXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}

	opfDir := path.Dir(opfPath)
	doc := &Document{Format: FormatEPUB}
	chapter := 0
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		name := href
		if opfDir != "." {
			name = path.Join(opfDir, href)
		}
		f, ok := files[name]
		if !ok {
			continue
		}

		text, err := chapterText(f)
		if err != nil {
			// One unreadable chapter does not sink the book.
			continue
		}
		chapter++
		doc.Pages = append(doc.Pages, PageRecord{
			PDFPage: chapter,
			Text:    cleanText(text),
		})
	}
	doc.TotalPages = chapter

	return doc, nil
}

func readXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return pipeerr.New(pipeerr.ErrCodeExtractFailed,
			fmt.Sprintf("epub entry %s missing", name), nil)
	}
	rc, err := f.Open()
	if err != nil {
		return pipeerr.New(pipeerr.ErrCodeExtractFailed,
			fmt.Sprintf("open epub entry %s", name), err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return pipeerr.New(pipeerr.ErrCodeExtractFailed,
			fmt.Sprintf("parse epub entry %s", name), err)
	}
	return nil
}

// chapterText extracts the visible text of one XHTML chapter, with block
// elements separated by newlines.
func chapterText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	node, err := html.Parse(rc)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	walkHTML(node, &sb)
	return sb.String(), nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "li": true, "br": true,
	"blockquote": true, "tr": true,
}

func walkHTML(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, sb)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteString("\n")
	}
}
