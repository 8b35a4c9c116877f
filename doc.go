/*
Package ferro is the compiler front-end for the ferro language, a small
ownership-oriented systems language (a Rust-dialect subset). From source
text the pipeline produces a token stream, a parse trace, an abstract
syntax tree, a semantic diagnosis, and a linear three-address IR of
quadruples. Package structure is as follows:

■ lexer: Package lexer implements the maximal-munch scanner.

■ lr: Package lr implements the grammar model, FIRST-set analysis,
canonical LR(1) item-set construction and ACTION/GOTO table generation.

■ syntax: Package syntax holds the AST node taxonomy and the ferro grammar
with its production reducers.

■ parser: Package parser drives a table-driven stack automaton that builds
AST nodes during reduction.

■ sema: Package sema performs type checking, mutability and initialization
discipline, and scope-based borrow tracking.

■ ir: Package ir lowers a checked AST to quadruples.

The base package contains the token model, which is used throughout all
the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package ferro
