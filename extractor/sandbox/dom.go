package sandbox

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func setTextContent(n *html.Node, text string) {
	if n.Type == html.TextNode {
		n.Data = text
		return
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// scripts returns the script elements in and under n in tree order
func scripts(n *html.Node) []*html.Node {
	found := make([]*html.Node, 0)
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode && c.DataAtom == atom.Script {
			found = append(found, c)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return found
}

func (p *Page) root() *html.Node {
	return p.doc.Nodes[0]
}

func (p *Page) body() *html.Node {
	for _, sel := range []string{"body", "html"} {
		if s := p.doc.Find(sel); s.Length() > 0 {
			return s.Get(0)
		}
	}
	return p.root()
}

func (p *Page) connected(n *html.Node) bool {
	return contains(p.root(), n)
}

// insert appends child to parent and runs any scripts that became connected
func (p *Page) insert(parent, child *html.Node) {
	detach(child)
	parent.AppendChild(child)
	if !p.connected(child) {
		return
	}
	for _, script := range scripts(child) {
		p.runScriptElement(script)
	}
}

func (p *Page) nodeOf(v goja.Value) *html.Node {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	ref := obj.GetSymbol(p.nodeSym)
	if ref == nil {
		return nil
	}
	n, _ := ref.Export().(*html.Node)
	return n
}

func (p *Page) accessor(obj *goja.Object, name string, get func() interface{}, set func(goja.Value)) {
	getter := p.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return p.vm.ToValue(get())
	})
	var setter goja.Value
	if set != nil {
		setter = p.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// wrap returns a new JS object for n, identity is not preserved between calls
func (p *Page) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	obj := p.vm.NewObject()
	obj.SetSymbol(p.nodeSym, n)

	p.accessor(obj, "nodeName", func() interface{} {
		if n.Type == html.TextNode {
			return "#text"
		}
		return strings.ToUpper(n.Data)
	}, nil)
	p.accessor(obj, "parentNode", func() interface{} { return p.wrap(n.Parent) }, nil)
	p.accessor(obj, "textContent", func() interface{} { return textContent(n) },
		func(v goja.Value) { setTextContent(n, v.String()) })
	obj.Set("remove", func(goja.FunctionCall) goja.Value {
		detach(n)
		return goja.Undefined()
	})

	if n.Type == html.TextNode {
		p.accessor(obj, "data", func() interface{} { return n.Data },
			func(v goja.Value) { n.Data = v.String() })
		return obj
	}

	p.accessor(obj, "tagName", func() interface{} { return strings.ToUpper(n.Data) }, nil)
	p.accessor(obj, "id", func() interface{} {
		v, _ := getAttr(n, "id")
		return v
	}, func(v goja.Value) { setAttr(n, "id", v.String()) })
	p.accessor(obj, "text", func() interface{} { return textContent(n) },
		func(v goja.Value) { setTextContent(n, v.String()) })

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := getAttr(n, strings.ToLower(call.Argument(0).String())); ok {
			return p.vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := p.nodeOf(call.Argument(0))
		if child == nil || contains(child, n) {
			panic(p.vm.NewTypeError("Failed to execute 'appendChild' on 'Node': parameter 1 is not a valid node"))
		}
		p.insert(n, child)
		return call.Argument(0)
	})
	obj.Set("append", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			child := p.nodeOf(arg)
			if child == nil {
				child = &html.Node{Type: html.TextNode, Data: arg.String()}
			} else if contains(child, n) {
				panic(p.vm.NewTypeError("Failed to execute 'append' on 'Element': the new child contains the parent"))
			}
			p.insert(n, child)
		}
		return goja.Undefined()
	})
	obj.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := p.nodeOf(call.Argument(0))
		if child == nil || child.Parent != n {
			panic(p.vm.NewTypeError("Failed to execute 'removeChild' on 'Node': the node is not a child of this node"))
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return p.first(goquery.NewDocumentFromNode(n).Find(call.Argument(0).String()))
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return p.all(goquery.NewDocumentFromNode(n).Find(call.Argument(0).String()))
	})
	return obj
}

func (p *Page) first(s *goquery.Selection) goja.Value {
	if s.Length() == 0 {
		return goja.Null()
	}
	return p.wrap(s.Get(0))
}

func (p *Page) all(s *goquery.Selection) goja.Value {
	items := make([]interface{}, 0, s.Length())
	for _, n := range s.Nodes {
		items = append(items, p.wrap(n))
	}
	return p.vm.NewArray(items...)
}

// setupDocument exposes the current goquery document as `document`
func (p *Page) setupDocument() {
	document := p.vm.NewObject()

	p.accessor(document, "body", func() interface{} { return p.wrap(p.body()) }, nil)
	p.accessor(document, "head", func() interface{} { return p.first(p.doc.Find("head")) }, nil)
	p.accessor(document, "documentElement", func() interface{} { return p.first(p.doc.Find("html")) }, nil)
	p.accessor(document, "URL", func() interface{} { return p.cfg.URL }, nil)

	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		return p.first(p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}))
	})
	document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return p.all(p.doc.Find(strings.ToLower(call.Argument(0).String())))
	})
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return p.first(p.doc.Find(call.Argument(0).String()))
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return p.all(p.doc.Find(call.Argument(0).String()))
	})
	document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return p.wrap(newElement(call.Argument(0).String()))
	})
	document.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return p.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})

	p.vm.Set("document", document)
}
