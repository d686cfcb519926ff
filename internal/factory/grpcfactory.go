package factory

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/testgen/internal/ir"
)

// MethodBinding describes how one API block name maps onto a gRPC unary
// method: the fully-qualified "/package.Service/Method" path, the proto
// file its request/response messages live in, and the field names the
// call's concrete arguments bind to, in order.
type MethodBinding struct {
	MethodPath  string
	ProtoFile   string
	ImportPaths []string
	ArgFields   []string
}

// GRPCFactory is a reference Function Factory that turns a concrete
// FuncCall into a dynamic unary gRPC call: grpc.NewClient with insecure
// transport credentials, and a dynamic.Message built from a
// protoparse-loaded descriptor instead of generated stubs — useful when
// the backend under test is described once, declaratively, rather than
// vendored as generated Go code.
type GRPCFactory struct {
	Target   string
	Bindings map[string]MethodBinding
	conn     *grpc.ClientConn
	descs    map[string]*desc.FileDescriptor
}

// NewGRPCFactory dials target once; the connection is reused for every
// call this factory services.
func NewGRPCFactory(target string, bindings map[string]MethodBinding) (*GRPCFactory, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("factory: dial %s: %w", target, err)
	}
	return &GRPCFactory{Target: target, Bindings: bindings, conn: conn, descs: map[string]*desc.FileDescriptor{}}, nil
}

func (f *GRPCFactory) GetFunction(name string, args []ir.Expression) (Callable, error) {
	binding, ok := f.Bindings[name]
	if !ok {
		return nil, fmt.Errorf("factory: no gRPC binding for %q", name)
	}
	return CallableFunc(func() (ir.Expression, error) {
		return f.invoke(binding, args)
	}), nil
}

func (f *GRPCFactory) fileDescriptor(binding MethodBinding) (*desc.FileDescriptor, error) {
	if fd, ok := f.descs[binding.ProtoFile]; ok {
		return fd, nil
	}
	parser := protoparse.Parser{ImportPaths: binding.ImportPaths}
	fds, err := parser.ParseFiles(binding.ProtoFile)
	if err != nil {
		return nil, fmt.Errorf("factory: parse %s: %w", binding.ProtoFile, err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("factory: %s: no file descriptors", binding.ProtoFile)
	}
	f.descs[binding.ProtoFile] = fds[0]
	return fds[0], nil
}

func (f *GRPCFactory) invoke(binding MethodBinding, args []ir.Expression) (ir.Expression, error) {
	fd, err := f.fileDescriptor(binding)
	if err != nil {
		return nil, err
	}

	methodDesc := findMethod(fd, binding.MethodPath)
	if methodDesc == nil {
		return nil, fmt.Errorf("factory: method %q not found in %s", binding.MethodPath, binding.ProtoFile)
	}

	req := dynamic.NewMessage(methodDesc.GetInputType())
	for i, fieldName := range binding.ArgFields {
		if i >= len(args) {
			break
		}
		if err := setDynamicField(req, fieldName, args[i]); err != nil {
			return nil, fmt.Errorf("factory: field %s: %w", fieldName, err)
		}
	}

	resp := dynamic.NewMessage(methodDesc.GetOutputType())
	if err := f.conn.Invoke(context.Background(), binding.MethodPath, req, resp); err != nil {
		return nil, fmt.Errorf("factory: invoke %s: %w", binding.MethodPath, err)
	}

	return dynamicMessageToExpr(resp), nil
}

func findMethod(fd *desc.FileDescriptor, methodPath string) *desc.MethodDescriptor {
	for _, svc := range fd.GetServices() {
		for _, m := range svc.GetMethods() {
			if "/"+svc.GetFullyQualifiedName()+"/"+m.GetName() == methodPath {
				return m
			}
		}
	}
	return nil
}

func setDynamicField(msg *dynamic.Message, fieldName string, value ir.Expression) error {
	switch v := value.(type) {
	case *ir.Str:
		return msg.TrySetFieldByName(fieldName, v.Value)
	case *ir.Num:
		return msg.TrySetFieldByName(fieldName, v.Value)
	case *ir.Bool:
		return msg.TrySetFieldByName(fieldName, v.Value)
	default:
		return fmt.Errorf("unsupported argument kind %s for field %s", value.Kind(), fieldName)
	}
}

// dynamicMessageToExpr flattens a response message to its first scalar
// field as an ir.Expression, which is all the SMT side ever inspects — the
// engine only needs a concrete value to bind, not the whole message shape.
func dynamicMessageToExpr(msg *dynamic.Message) ir.Expression {
	for _, fd := range msg.GetKnownFields() {
		val := msg.GetField(fd)
		switch v := val.(type) {
		case string:
			return &ir.Str{Value: v}
		case int64:
			return &ir.Num{Value: v}
		case int32:
			return &ir.Num{Value: int64(v)}
		case bool:
			return &ir.Bool{Value: v}
		}
	}
	return &ir.Str{Value: ""}
}
