// Package folders 把目录类别解析为文件系统路径
package folders

import (
	"sort"
)

// Resolver 维护类别到路径列表的映射，第一个路径是主路径。
// 创建后只读，可并发使用。
type Resolver struct {
	paths map[string][]string
}

// NewResolver 创建解析器，复制传入的映射
func NewResolver(paths map[string][]string) *Resolver {
	r := &Resolver{paths: make(map[string][]string, len(paths))}
	for name, p := range paths {
		r.paths[name] = append([]string(nil), p...)
	}
	return r
}

// ResolveFolderPaths 返回类别对应的有序路径列表，未知类别返回空
func (r *Resolver) ResolveFolderPaths(category string) []string {
	return append([]string(nil), r.paths[category]...)
}

// Categories 返回排序后的类别名
func (r *Resolver) Categories() []string {
	names := make([]string, 0, len(r.paths))
	for name, p := range r.paths {
		if len(p) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
