package dav

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/panshare/sharedav/internal/vfs"
)

type multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XMLNS     string     `xml:"xmlns:D,attr"`
	Responses []response `xml:"D:response"`
}

type response struct {
	Href     string   `xml:"D:href"`
	Propstat propstat `xml:"D:propstat"`
}

type propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type prop struct {
	DisplayName   string       `xml:"D:displayname"`
	ResourceType  resourceType `xml:"D:resourcetype"`
	ContentLength int64        `xml:"D:getcontentlength"`
	LastModified  string       `xml:"D:getlastmodified"`
	ETag          string       `xml:"D:getetag"`
}

type resourceType struct {
	Collection *struct{} `xml:"D:collection"`
}

// propfindBody renders the multistatus document for node at href. When
// withChildren is set (Depth: 1 on a directory) the node's direct children
// are included after the node itself.
func propfindBody(node vfs.NodeRef, href string, withChildren bool) ([]byte, error) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	ms := multistatus{XMLNS: "DAV:"}
	ms.Responses = append(ms.Responses, buildResponse(node, href, now))

	if withChildren && node.IsDir() {
		parent := href
		if !strings.HasSuffix(parent, "/") {
			parent += "/"
		}
		for _, child := range node.Children() {
			ms.Responses = append(ms.Responses, buildResponse(child, parent+url.PathEscape(child.Name()), now))
		}
	}

	body, err := xml.MarshalIndent(ms, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal multistatus: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func buildResponse(node vfs.NodeRef, href, now string) response {
	if node.IsDir() && !strings.HasSuffix(href, "/") {
		href += "/"
	}

	p := prop{
		DisplayName:   node.Name(),
		ContentLength: node.Size(),
		LastModified:  now,
	}
	if node.IsDir() {
		p.ResourceType.Collection = &struct{}{}
	} else {
		p.ETag = `"` + node.ETag() + `"`
	}

	return response{
		Href: href,
		Propstat: propstat{
			Prop:   p,
			Status: "HTTP/1.1 200 OK",
		},
	}
}
