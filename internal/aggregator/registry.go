package aggregator

import "fmt"

// Registry 类型标签 -> 工厂。进程启动时一次性组装后只读，可安全并发使用。
type Registry struct {
	factories map[Type]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[Type]Factory{}}
}

// Register 注册某类型的工厂（重复注册后注册者覆盖）
func (r *Registry) Register(t Type, f Factory) {
	r.factories[t] = f
}

// Resolve 解析工厂；未注册类型返回 ErrNotSupported
func (r *Registry) Resolve(t Type) (Factory, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, t)
	}
	return f, nil
}
