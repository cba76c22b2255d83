package ast

// Visitor is implemented by passes that walk every node kind.
type Visitor interface {
	VisitRoot(*Root)
	VisitBlock(*Block)
	VisitDecl(*Decl)
	VisitFunc(*Func)
	VisitReturn(*Return)
	VisitCond(*Cond)
	VisitLoop(*Loop)
	VisitBreak(*Break)
	VisitImport(*Import)
	VisitClass(*Class)
	VisitTryCatch(*TryCatch)
	VisitThrow(*Throw)
	VisitIdent(*Ident)
	VisitNumber(*Number)
	VisitString(*String)
	VisitUnary(*Unary)
	VisitBinary(*Binary)
	VisitCall(*Call)
	VisitIndex(*Index)
	VisitMember(*Member)
}
